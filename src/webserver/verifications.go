package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tradesafe/tradeverify/src/cache"
	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/types"
	"github.com/tradesafe/tradeverify/src/verification"
)

// Runner executes one verification request end to end.
type Runner interface {
	Run(ctx context.Context, req verification.Request) (*types.Verification, error)
}

type Verifications struct {
	runner  Runner
	store   verification.Store
	records *cache.Records
}

func NewVerifications(runner Runner, store verification.Store, records *cache.Records) Verifications {
	return Verifications{runner: runner, store: store, records: records}
}

func (v Verifications) Create(c *gin.Context) {
	var req struct {
		Client      string `json:"client" binding:"required,min=2,max=255"`
		Country     string `json:"country" binding:"required,len=2"`
		Role        string `json:"role" binding:"required,oneof=Import Export"`
		ProductName string `json:"productName" binding:"max=500"`
		WebsiteURL  string `json:"websiteUrl" binding:"omitempty,url,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	rec, err := v.runner.Run(c.Request.Context(), verification.Request{
		Client:      req.Client,
		Country:     req.Country,
		Role:        req.Role,
		ProductName: req.ProductName,
		WebsiteURL:  req.WebsiteURL,
	})
	if err != nil {
		if errors.Is(err, matcher.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
		log.Printf("webserver: run verification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
		return
	}

	v.records.Set(c.Request.Context(), rec)
	c.JSON(http.StatusCreated, recordView(rec))
}

func (v Verifications) Get(c *gin.Context) {
	id := c.Param("id")

	if rec, ok := v.records.Get(c.Request.Context(), id); ok {
		c.JSON(http.StatusOK, recordView(rec))
		return
	}

	rec, err := v.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
			return
		}
		log.Printf("webserver: get verification %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
		return
	}

	v.records.Set(c.Request.Context(), rec)
	c.JSON(http.StatusOK, recordView(rec))
}

// recordView renders the stored record with its JSON columns expanded.
func recordView(rec *types.Verification) gin.H {
	return gin.H{
		"id":              rec.ID,
		"client":          rec.Client,
		"country":         rec.ClientCountry,
		"role":            rec.ClientRole,
		"productName":     rec.ProductName,
		"state":           rec.State,
		"evidence":        rawJSON(rec.Evidence),
		"sourcesUsed":     rawJSON(rec.Sources),
		"websiteUrl":      rec.WebsiteURL,
		"publicationDate": rec.PubDate,
		"narrative":       rec.Narrative,
		"activityLevel":   rec.ActivityLevel,
		"riskScore":       rec.RiskScore,
		"flags":           rawJSON(rec.Flags),
		"confidence":      rec.Confidence,
		"isRedFlag":       rec.IsRedFlag,
		"createdAt":       rec.CreatedAt,
		"dataCollectedAt": rec.DataCollectedAt,
		"lastVerifiedAt":  rec.LastVerifiedAt,
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
