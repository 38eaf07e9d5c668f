package neo4jsync

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/AplusKminus/GraphWalker/internal/config"
	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/logger"
)

// Runner executes statements in a single write transaction.
type Runner interface {
	RunWrite(ctx context.Context, stmts []Statement) error
}

// Client runs statements against a Neo4j server.
type Client struct {
	driver neo4j.DriverWithContext
	dbName string
	log    *zap.SugaredLogger
}

// Connect opens a driver for cfg and verifies connectivity.
func Connect(ctx context.Context, cfg config.Neo4jConfig) (*Client, error) {
	if cfg.URI == "" {
		return nil, errors.Invalidf("neo4j uri is not configured")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, errors.Wrap(err, "create neo4j driver")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrapf(err, "connect to neo4j at %s", cfg.URI)
	}
	return &Client{driver: driver, dbName: cfg.Database, log: logger.Named("neo4j")}, nil
}

// Close releases the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// RunWrite implements Runner.
func (c *Client) RunWrite(ctx context.Context, stmts []Statement) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, s := range stmts {
			res, err := tx.Run(ctx, s.Query, s.Params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, "neo4j write")
	}
	c.log.Debugw("Neo4j write committed", "statements", len(stmts))
	return nil
}

// Push replaces the graph stored under key with doc.
func Push(ctx context.Context, r Runner, key string, doc *interchange.Document) error {
	if key == "" {
		return errors.Invalidf("neo4j graph key must not be empty")
	}
	fp, err := interchange.Fingerprint(doc)
	if err != nil {
		return err
	}
	if err := r.RunWrite(ctx, PushStatements(key, doc, fp)); err != nil {
		return errors.Wrapf(err, "push graph %q", key)
	}
	return nil
}

// Reset deletes the graph stored under key.
func Reset(ctx context.Context, r Runner, key string) error {
	if key == "" {
		return errors.Invalidf("neo4j graph key must not be empty")
	}
	return r.RunWrite(ctx, []Statement{ResetStatement(key)})
}
