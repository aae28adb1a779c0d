package datasource

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/shared/circuitbreaker"
)

// BreakerSQLAdapter guards a SQLAdapter's connection lifecycle with a
// transport-level circuit breaker, independent of the investigation-level
// budget in pkg/safety.CircuitBreaker: this one protects a downstream
// data source from a flapping connection being retried into the ground,
// the other bounds how much of an investigation's budget one hypothesis
// may spend. Only connection and schema-discovery calls are guarded —
// ExecuteQuery/Preview/Sample/CountRows/GetColumnStats failures are
// usually query-shaped (bad SQL, missing table), not transport failures,
// and routing those through the same breaker would trip it on
// legitimate per-query errors.
type BreakerSQLAdapter struct {
	SQLAdapter
	breaker *gobreaker.CircuitBreaker
}

// WrapSQLAdapter returns adapter with its connection lifecycle guarded by
// the named breaker in mgr.
func WrapSQLAdapter(adapter SQLAdapter, mgr *circuitbreaker.Manager, name string) *BreakerSQLAdapter {
	return &BreakerSQLAdapter{SQLAdapter: adapter, breaker: mgr.Get(name)}
}

func (b *BreakerSQLAdapter) Connect(ctx context.Context) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.SQLAdapter.Connect(ctx)
	})
	return err
}

func (b *BreakerSQLAdapter) TestConnection(ctx context.Context) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.SQLAdapter.TestConnection(ctx)
	})
	return err
}

func (b *BreakerSQLAdapter) GetSchema(ctx context.Context) (domain.SchemaResponse, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.SQLAdapter.GetSchema(ctx)
	})
	if err != nil {
		return domain.SchemaResponse{}, err
	}
	return res.(domain.SchemaResponse), nil
}
