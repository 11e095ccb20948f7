package export

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNoURI is returned by NewNeo4jRunner when no URI is configured.
var ErrNoURI = errors.New("export: neo4j uri is required")

// Runner executes one Cypher statement.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cypher string, params map[string]any) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, cypher string, params map[string]any) error {
	return f(ctx, cypher, params)
}

// Neo4jConfig holds connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Neo4jRunner executes statements through the official driver.
type Neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jRunner creates a driver for cfg. It does not connect; use Verify.
func NewNeo4jRunner(cfg Neo4jConfig) (*Neo4jRunner, error) {
	if cfg.URI == "" {
		return nil, ErrNoURI
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("export: create neo4j driver: %w", err)
	}
	return &Neo4jRunner{driver: driver, database: cfg.Database}, nil
}

// Verify checks connectivity.
func (r *Neo4jRunner) Verify(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// Run implements Runner.
func (r *Neo4jRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	_, err := r.Query(ctx, cypher, params)
	return err
}

// Query executes a statement and returns its rows keyed by column name.
func (r *Neo4jRunner) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("export: execute neo4j query: %w", err)
	}
	rows := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

// Close releases the driver.
func (r *Neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Statement is one recorded call.
type Statement struct {
	Cypher string
	Params map[string]any
}

// RecordingRunner keeps every statement it is given. Err, when set, is
// returned from every Run after the statement is recorded.
type RecordingRunner struct {
	Err error

	mu         sync.Mutex
	statements []Statement
}

// Run implements Runner.
func (r *RecordingRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, Statement{Cypher: cypher, Params: params})
	return r.Err
}

// Statements returns a copy of the recorded statements.
func (r *RecordingRunner) Statements() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.statements...)
}
