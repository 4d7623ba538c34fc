package handlers

import (
	"net/http"

	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/middlewares"
	"election-engine/internal/api/models"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
	"election-engine/internal/service"

	"github.com/gin-gonic/gin"
)

func electionInput(req models.CreateElectionRequest) service.ElectionInput {
	return service.ElectionInput{
		Name:                 req.Name,
		Description:          req.Description,
		Location:             req.Location,
		Channel:              req.Channel,
		RegistrationOpensAt:  req.RegistrationOpensAt,
		RegistrationClosesAt: req.RegistrationClosesAt,
		VotingOpensAt:        req.VotingOpensAt,
		VotingClosesAt:       req.VotingClosesAt,
	}
}

func adminID(c *gin.Context) string {
	return c.GetString(middlewares.ContextAdminID)
}

// ListElections returns a filtered page of elections with their phase
func ListElections(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ElectionFilterRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		filter := repositories.ElectionFilter{
			Name:        req.Name,
			IsCancelled: req.Cancelled,
			Limit:       req.Limit,
			Offset:      req.Offset,
		}
		if req.Channel != "" {
			ch, err := election.ParseChannel(req.Channel)
			if err != nil {
				respondError(c, services, err, nil)
				return
			}
			filter.Channel = ch
		}

		page, err := services.Engine().ListElections(c.Request.Context(), filter)
		if err != nil {
			respondError(c, services, err, nil)
			return
		}

		limit := req.Limit
		if limit == 0 {
			limit = 20
		}
		respond(c, http.StatusOK, "", models.PaginatedResponse{
			Data: page.Elections,
			Pagination: models.PaginationInfo{
				Limit:        limit,
				Offset:       req.Offset,
				TotalRecords: page.Total,
				HasNext:      req.Offset+len(page.Elections) < page.Total,
			},
		})
	}
}

// CreateElection creates a draft election
func CreateElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateElectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		e, err := services.Engine().CreateElection(c.Request.Context(), adminID(c), electionInput(req))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusCreated, "Election created", e)
	}
}

// GetElection returns the full view of one election
func GetElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := services.Engine().GetElection(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "", detail)
	}
}

// UpdateElection rewrites a draft election
func UpdateElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateElectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		e, err := services.Engine().UpdateElection(c.Request.Context(), adminID(c), c.Param("id"), electionInput(req))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "Election updated", e)
	}
}

// DeleteElection removes a draft election and everything it owns
func DeleteElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := services.Engine().DeleteElection(c.Request.Context(), adminID(c), c.Param("id")); err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "Election deleted", nil)
	}
}

// AddCandidate adds a candidate to a draft election
func AddCandidate(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CandidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		cand, err := services.Engine().AddCandidate(c.Request.Context(), adminID(c), c.Param("id"), service.CandidateInput{
			Number:          req.Number,
			Name:            req.Name,
			Description:     req.Description,
			ProfileImageRef: req.ProfileImageRef,
		})
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusCreated, "Candidate added", cand)
	}
}

func ListCandidates(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidates, err := services.Engine().ListCandidates(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "", candidates)
	}
}

// AddEligibleVoters enrols a batch of users in a draft election
func AddEligibleVoters(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AddVotersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		in := make([]service.VoterInput, 0, len(req.Voters))
		for _, v := range req.Voters {
			in = append(in, service.VoterInput{UserID: v.UserID, Channel: v.Channel})
		}

		voters, err := services.Engine().AddEligibleVoters(c.Request.Context(), adminID(c), c.Param("id"), in)
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusCreated, "Voters added", voters)
	}
}

// PublishElection publishes a draft election and provisions its key.
// A key generation failure still reports the published election.
func PublishElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PublishRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, services, bindError(err), nil)
				return
			}
		}

		publishAt := services.Engine().Now()
		if req.PublishAt != nil {
			publishAt = *req.PublishAt
		}

		result, err := services.Engine().Publish(c.Request.Context(), adminID(c), c.Param("id"), publishAt)
		if err != nil {
			respondError(c, services, err, result)
			return
		}
		respond(c, http.StatusOK, "Election published", result)
	}
}

// CancelElection flags an election as cancelled. Repeating it is harmless.
func CancelElection(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := services.Engine().Cancel(c.Request.Context(), adminID(c), c.Param("id"))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "Election cancelled", e)
	}
}

// ReloadElectionKey retries key generation after a failure
func ReloadElectionKey(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := services.Engine().ReloadKey(c.Request.Context(), adminID(c), c.Param("id"))
		if err != nil {
			respondError(c, services, err, key)
			return
		}
		respond(c, http.StatusOK, "Election key generated", key)
	}
}

// SetResultWindow configures when results are announced
func SetResultWindow(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ResultWindowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}

		e, err := services.Engine().AnnounceResult(c.Request.Context(), adminID(c), c.Param("id"), req.OpensAt, req.EndsAt)
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "Result window set", e)
	}
}

// GetElectionResults returns the tally of an election in its announcement phase
func GetElectionResults(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := services.Engine().GetResults(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		respond(c, http.StatusOK, "", report)
	}
}
