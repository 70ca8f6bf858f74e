// Package policy decides what a scored detection request gets back: a real
// token, a real token flagged suspicious, or a decoy.
package policy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scrapeguard/server/internal/detectlog"
	"github.com/scrapeguard/server/internal/metrics"
	"github.com/scrapeguard/server/internal/score"
	"github.com/scrapeguard/server/internal/token"
)

// Decision is the terminal outcome of one detection request.
type Decision string

const (
	// DecisionAllow grants a real, non-suspicious token.
	DecisionAllow Decision = "allow"
	// DecisionFlag grants a real token marked suspicious and records the
	// visitor, allowing monitoring without blocking.
	DecisionFlag Decision = "flag"
	// DecisionBlock records the visitor and returns a decoy token that will
	// never validate.
	DecisionBlock Decision = "block"
)

// Result carries the decision and the token material to return. The token
// string is present for every decision so the response shape never reveals
// which branch was taken.
type Result struct {
	Decision   Decision
	Score      int
	Token      string
	ExpiresIn  int
	Suspicious bool
}

// Policy orchestrates scoring, token issuance and detection logging.
type Policy struct {
	engine         *score.Engine
	tokens         *token.Registry
	detections     *detectlog.Log
	scoreThreshold int
	blockThreshold int
	logger         logrus.FieldLogger
}

// New creates a policy. Thresholds follow the scoring scale: scores below
// scoreThreshold pass clean, scores at or above blockThreshold are blocked,
// everything between is flagged.
func New(engine *score.Engine, tokens *token.Registry, detections *detectlog.Log, scoreThreshold, blockThreshold int, logger logrus.FieldLogger) *Policy {
	return &Policy{
		engine:         engine,
		tokens:         tokens,
		detections:     detections,
		scoreThreshold: scoreThreshold,
		blockThreshold: blockThreshold,
		logger:         logger,
	}
}

// Evaluate runs one detection request to its terminal decision.
func (p *Policy) Evaluate(ctx context.Context, meta score.RequestMeta, sig score.Signals, outcome score.ChallengeOutcome) (*Result, error) {
	s := p.engine.Score(meta, sig, outcome)
	expiresIn := int(p.tokens.Validity().Seconds())

	switch {
	case s < p.scoreThreshold:
		tok, err := p.tokens.Issue(ctx, sig.Fingerprint, false)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		metrics.VerdictsTotal.WithLabelValues(string(DecisionAllow)).Inc()
		metrics.TokensIssuedTotal.WithLabelValues("false").Inc()
		return &Result{Decision: DecisionAllow, Score: s, Token: tok.Value, ExpiresIn: expiresIn}, nil

	case s >= p.blockThreshold:
		p.record(meta, sig, s)
		metrics.VerdictsTotal.WithLabelValues(string(DecisionBlock)).Inc()
		return &Result{Decision: DecisionBlock, Score: s, Token: p.tokens.IssueDecoy(), ExpiresIn: expiresIn}, nil

	default:
		p.record(meta, sig, s)
		tok, err := p.tokens.Issue(ctx, sig.Fingerprint, true)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		metrics.VerdictsTotal.WithLabelValues(string(DecisionFlag)).Inc()
		metrics.TokensIssuedTotal.WithLabelValues("true").Inc()
		return &Result{Decision: DecisionFlag, Score: s, Token: tok.Value, ExpiresIn: expiresIn, Suspicious: true}, nil
	}
}

func (p *Policy) record(meta score.RequestMeta, sig score.Signals, s int) {
	p.detections.Append(&detectlog.Record{
		Origin:      meta.Origin,
		UserAgent:   meta.UserAgent,
		Score:       s,
		Fingerprint: sig.Fingerprint,
		Signals:     sig,
		Headers:     meta.Headers,
	})
	metrics.DetectionsTotal.Inc()

	p.logger.WithFields(logrus.Fields{
		"origin":      meta.Origin,
		"user_agent":  meta.UserAgent,
		"score":       s,
		"fingerprint": sig.Fingerprint,
	}).Warn("bot detected")
}
