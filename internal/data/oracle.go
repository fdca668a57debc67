package data

import (
	"context"

	"chatwarden/internal/biz/repo"
	"chatwarden/internal/conf"
	"chatwarden/oracle"
)

// oracleRepo implements the judgment oracle repository. It owns the review
// rules so callers only hand it a transcript.
type oracleRepo struct {
	client *oracle.Client
	rules  *conf.RulesConfig
}

// NewOracleRepo creates an oracle repository.
func NewOracleRepo(client *oracle.Client, rules *conf.RulesConfig) repo.OracleRepo {
	if client == nil {
		return nil
	}
	if rules == nil {
		rules = conf.DefaultRulesConfig()
	}
	return &oracleRepo{client: client, rules: rules}
}

// Judge submits the transcript for review and returns the raw response.
func (r *oracleRepo) Judge(ctx context.Context, transcript string) (string, error) {
	prompt := oracle.BuildReviewPrompt(r.rules.DefaultRules, r.rules.CustomRules, transcript)
	return r.client.Review(ctx, prompt)
}
