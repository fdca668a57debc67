package data

import (
	"chatwarden/internal/biz/repo"
	"chatwarden/internal/conf"
	"chatwarden/lark"
	"chatwarden/onebot"
	"chatwarden/oracle"
)

// Repositories contains all repositories
type Repositories struct {
	Ledger repo.LedgerRepo
	Oracle repo.OracleRepo
	Action repo.ActionRepo
}

// NewRepositories creates all repositories. The action repository prefers
// OneBot (full mute support) and falls back to the warn-only Lark adapter.
func NewRepositories(
	onebotClient *onebot.Client,
	larkClient *lark.Client,
	oracleClient *oracle.Client,
	rules *conf.RulesConfig,
	ledgerDBPath string,
) (*Repositories, error) {
	ledgerRepo, err := NewLedgerRepo(ledgerDBPath)
	if err != nil {
		return nil, err
	}

	var action repo.ActionRepo
	if onebotClient != nil {
		action = NewOneBotRepo(onebotClient)
	} else {
		action = NewLarkRepo(larkClient)
	}

	return &Repositories{
		Ledger: ledgerRepo,
		Oracle: NewOracleRepo(oracleClient, rules),
		Action: action,
	}, nil
}
