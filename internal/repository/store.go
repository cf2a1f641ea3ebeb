package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// SimulationStore combines session and attempt access into the single
// durable store the simulation engine persists through.
type SimulationStore struct {
	*SessionRepository
	*AttemptRepository
}

// NewSimulationStore creates the combined store.
func NewSimulationStore(pool *pgxpool.Pool) *SimulationStore {
	return &SimulationStore{
		SessionRepository: NewSessionRepository(pool),
		AttemptRepository: NewAttemptRepository(pool),
	}
}
