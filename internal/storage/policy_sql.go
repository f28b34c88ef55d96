package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

// SQLExecutor runs policy statements against the platform database, in order.
type SQLExecutor interface {
	ExecSQL(ctx context.Context, statements ...string) error
}

// PolicyStatements renders a row level security policy on storage.objects as
// a drop followed by a create, so re-running it heals a half applied policy.
func PolicyStatements(policy AccessPolicy) ([]string, error) {
	var command, clause string
	switch policy.Operation {
	case OperationRead:
		command, clause = "SELECT", "USING"
	case OperationWrite:
		command, clause = "INSERT", "WITH CHECK"
	case OperationUpdate:
		command, clause = "UPDATE", "USING"
	case OperationDelete:
		command, clause = "DELETE", "USING"
	default:
		return nil, errs.New(errs.KindInvalidInput, fmt.Sprintf("policy %q has unknown operation %q", policy.Name, policy.Operation))
	}

	condition := "bucket_id = " + quoteLiteral(policy.Container)
	switch policy.Predicate {
	case PredicatePublic:
	case PredicateAuthenticated:
		condition += " AND auth.role() = 'authenticated'"
	default:
		return nil, errs.New(errs.KindInvalidInput, fmt.Sprintf("policy %q has unknown predicate %q", policy.Name, policy.Predicate))
	}

	name := pgx.Identifier{policy.Name}.Sanitize()
	return []string{
		fmt.Sprintf("DROP POLICY IF EXISTS %s ON storage.objects", name),
		fmt.Sprintf("CREATE POLICY %s ON storage.objects FOR %s %s (%s)", name, command, clause, condition),
	}, nil
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// rpcExecutor calls the execute_sql function exposed through the REST API.
type rpcExecutor struct {
	http *resty.Client
}

func (e *rpcExecutor) ExecSQL(ctx context.Context, statements ...string) error {
	query := strings.Join(statements, ";\n") + ";"
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"sql_query": query}).
		Post("/rest/v1/rpc/execute_sql")
	return checkResponse(resp, err, "execute_sql rpc failed")
}

// PgxPolicyExecutor runs policy statements over a direct Postgres connection,
// each batch inside one transaction.
type PgxPolicyExecutor struct {
	pool *pgxpool.Pool
}

func NewPgxPolicyExecutor(ctx context.Context, dsn string) (*PgxPolicyExecutor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, "invalid platform database url", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mapPgError(err, "platform database unreachable")
	}

	return &PgxPolicyExecutor{pool: pool}, nil
}

func (e *PgxPolicyExecutor) ExecSQL(ctx context.Context, statements ...string) error {
	err := pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		for _, statement := range statements {
			if _, err := tx.Exec(ctx, statement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapPgError(err, "policy statements failed")
	}
	return nil
}

func (e *PgxPolicyExecutor) Close() {
	e.pool.Close()
}

func mapPgError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501":
			return errs.Wrap(errs.KindPermissionDenied, msg, err)
		case "42P01", "3F000":
			return errs.Wrap(errs.KindNotFound, msg, err)
		case "42601", "22023":
			return errs.Wrap(errs.KindInvalidInput, msg, err)
		}
		return errs.Wrap(errs.KindUnknown, msg, err)
	}

	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}
