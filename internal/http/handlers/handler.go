package handlers

import (
	"errors"
	"net/http"

	"warthug/internal/domain"
	"warthug/internal/repository"
	"warthug/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB *pgxpool.Pool

	Economy     *service.Economy
	Referral    *service.Referral
	Tasks       *service.Tasks
	Votes       *service.Votes
	Cards       *service.Cards
	Leaderboard *service.Leaderboard

	TransactionRepo *repository.TransactionRepository
}

func NewHandler(db *pgxpool.Pool) *Handler {
	players := repository.NewPlayerRepository(db)
	cards := repository.NewCardTemplateRepository(db)
	tasks := repository.NewTaskRepository(db)
	votes := repository.NewVoteRepository(db)
	ledger := repository.NewTransactionRepository(db)

	return &Handler{
		DB:              db,
		Economy:         service.NewEconomy(players, ledger),
		Referral:        service.NewReferral(players, cards, ledger),
		Tasks:           service.NewTasks(players, tasks, ledger),
		Votes:           service.NewVotes(players, votes, ledger),
		Cards:           service.NewCards(cards),
		Leaderboard:     service.NewLeaderboard(players),
		TransactionRepo: ledger,
	}
}

// getUserID extracts the authenticated player id set by the JWT middleware.
func getUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// errStatus maps domain errors onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientEnergy),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrCooldownActive),
		errors.Is(err, domain.ErrLevelTooLow),
		errors.Is(err, domain.ErrNothingToClaim),
		errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the standard error envelope.
func fail(c *gin.Context, err error) {
	status := errStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
