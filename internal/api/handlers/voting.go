package handlers

import (
	"net/http"

	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/middlewares"
	"election-engine/internal/api/models"
	"election-engine/internal/service"

	"github.com/gin-gonic/gin"
)

func voterID(c *gin.Context) string {
	return c.GetString(middlewares.ContextVoterID)
}

// ListVoterElections returns the elections visible to the calling voter
func ListVoterElections(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := services.Engine().ListVisibleElections(c.Request.Context(), voterID(c))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		if summaries == nil {
			summaries = []service.ElectionSummary{}
		}
		respond(c, http.StatusOK, "", summaries)
	}
}

// GetVoterElection returns one election the voter can see
func GetVoterElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := services.Engine().GetVoterElection(c.Request.Context(), c.Param("id"), voterID(c))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "", detail)
	}
}

// RegisterVoter lets a HYBRID voter pick their channel during registration
func RegisterVoter(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		v, err := services.Engine().Register(c.Request.Context(), c.Param("id"), voterID(c), req.Channel)
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "Registration recorded", v)
	}
}

// CastBallot records the voter's ballot and returns a receipt
func CastBallot(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CastBallotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		receipt, err := services.Engine().CastBallot(c.Request.Context(), c.Param("id"), voterID(c), service.CastInput{
			CandidateID: req.CandidateID,
			Location:    req.CastLocation,
			ImageRef:    req.CastProofImageRef,
		})
		if err != nil {
			if service.IsCastFailure(err) {
				err = models.NewAPIError(models.ErrCodeInternalError, "Ballot could not be recorded", http.StatusInternalServerError)
			}
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusCreated, "Ballot cast", receipt)
	}
}

// GetVoterResults returns the results of an election to one of its voters
func GetVoterResults(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := services.Engine().GetVoterResults(c.Request.Context(), c.Param("id"), voterID(c))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "", report)
	}
}
