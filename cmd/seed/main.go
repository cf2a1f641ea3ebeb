package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/config"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/database"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/logger"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/repository"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type sectionSeed struct {
	name             string
	timeLimitMinutes int
	questionCount    int
}

type examTypeSeed struct {
	code                 string
	name                 string
	totalDurationMinutes int
	sections             []sectionSeed
}

var catalog = []examTypeSeed{
	{
		code:                 "TOLC-I",
		name:                 "TOLC-I (Ingegneria)",
		totalDurationMinutes: 110,
		sections: []sectionSeed{
			{"Matematica", 50, 20},
			{"Logica", 20, 10},
			{"Scienze", 20, 10},
			{"Comprensione verbale", 20, 10},
		},
	},
	{
		code:                 "TOLC-E",
		name:                 "TOLC-E (Economia)",
		totalDurationMinutes: 90,
		sections: []sectionSeed{
			{"Logica", 30, 13},
			{"Comprensione verbale", 30, 10},
			{"Matematica", 30, 13},
		},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Exam Type Catalog ===")

	for _, seed := range catalog {
		var examTypeID uuid.UUID
		err := pool.QueryRow(ctx,
			"SELECT id FROM exam_types WHERE code = $1", seed.code,
		).Scan(&examTypeID)

		if err == nil {
			fmt.Printf("%s already seeded (id %s), skipping\n", seed.code, examTypeID)
			continue
		}
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Str("code", seed.code).Msg("Failed to check existing exam type")
		}

		err = pool.QueryRow(ctx,
			`INSERT INTO exam_types (code, name, total_duration_minutes)
			 VALUES ($1, $2, $3) RETURNING id`,
			seed.code, seed.name, seed.totalDurationMinutes,
		).Scan(&examTypeID)
		if err != nil {
			log.Fatal().Err(err).Str("code", seed.code).Msg("Failed to create exam type")
		}
		fmt.Printf("Created %s (id %s)\n", seed.code, examTypeID)

		for order, sec := range seed.sections {
			var sectionID uuid.UUID
			err := pool.QueryRow(ctx,
				`INSERT INTO sections (exam_type_id, name, time_limit_minutes, question_count, sort_order)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				examTypeID, sec.name, sec.timeLimitMinutes, sec.questionCount, order,
			).Scan(&sectionID)
			if err != nil {
				log.Fatal().Err(err).Str("section", sec.name).Msg("Failed to create section")
			}

			for i := 1; i <= sec.questionCount; i++ {
				q := &model.Question{
					SectionID: sectionID,
					Text:      fmt.Sprintf("[%s / %s] Domanda di prova n. %d", seed.code, sec.name, i),
					Options: map[string]string{
						"A": "Prima opzione",
						"B": "Seconda opzione",
						"C": "Terza opzione",
						"D": "Quarta opzione",
						"E": "Quinta opzione",
					},
					CorrectOption: string(rune('A' + (i % 5))),
					Explanation:   fmt.Sprintf("Spiegazione della domanda n. %d", i),
				}
				if err := questionRepo.CreateQuestion(ctx, q); err != nil {
					log.Fatal().Err(err).Str("section", sec.name).Msg("Failed to create question")
				}
			}
			fmt.Printf("  %s: %d questions, %d min\n", sec.name, sec.questionCount, sec.timeLimitMinutes)
		}
	}

	// A throwaway token makes it possible to poke the API right after
	// seeding, without the real auth provider in the loop.
	authService := service.NewAuthService(cfg)
	devUserID := uuid.New()
	token, err := authService.IssueToken(devUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue dev token")
	}
	fmt.Printf("\nDev user: %s\nDev token: %s\n", devUserID, token)
	fmt.Println("=== Seeding complete ===")
}
