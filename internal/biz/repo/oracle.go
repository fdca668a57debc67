package repo

import "context"

// OracleRepo is the judgment oracle interface. The response is raw model
// output; parsing and validation happen in the usecase layer because the
// oracle is untrusted input.
type OracleRepo interface {
	Judge(ctx context.Context, transcript string) (string, error)
}
