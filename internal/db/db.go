package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocql/gocql"
	"github.com/rs/zerolog"
)

type ScyllaConfig struct {
	Hosts       []string
	Port        int
	Keyspace    string
	Consistency string
	Replication int
	// MaxWait bounds how long Connect keeps retrying an unavailable cluster.
	MaxWait time.Duration
}

// Connect waits for the cluster, makes sure the keyspace and the reel tables
// exist and returns a session bound to the keyspace.
func Connect(ctx context.Context, cfg ScyllaConfig, log zerolog.Logger) (*gocql.Session, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = cfg.MaxWait

	var session *gocql.Session
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		s, err := connect(cfg)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("scylla connect retry")
			return err
		}
		if err := EnsureSchema(s, cfg.Keyspace); err != nil {
			s.Close()
			log.Warn().Err(err).Int("attempt", attempt).Msg("ensure schema retry")
			return err
		}
		session = s
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("scylla not ready: %w", err)
	}
	return session, nil
}

func connect(cfg ScyllaConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	if cfg.Port > 0 {
		cluster.Port = cfg.Port
	}
	cluster.Timeout = 5 * time.Second
	cluster.Consistency = ParseConsistency(cfg.Consistency)

	tmp, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	err = EnsureKeyspace(tmp, cfg.Keyspace, cfg.Replication)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("ensure keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster.Keyspace = cfg.Keyspace
	return cluster.CreateSession()
}

func ParseConsistency(raw string) gocql.Consistency {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.Quorum
	}
}

func EnsureKeyspace(session *gocql.Session, keyspace string, replicationFactor int) error {
	if replicationFactor <= 0 {
		replicationFactor = 3
	}
	stmt := fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}", keyspace, replicationFactor)
	return session.Query(stmt).Exec()
}

func EnsureSchema(session *gocql.Session, keyspace string) error {
	for _, stmt := range SchemaStatements(keyspace) {
		if err := session.Query(stmt).Exec(); err != nil {
			return err
		}
	}
	// reel_items created before posters were stored lack the column
	return ensureColumn(session, keyspace, "reel_items", "poster text")
}

func SchemaStatements(keyspace string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.reels (
			id text PRIMARY KEY,
			title text,
			updated_at timestamp
		)`, keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.reel_items (
			reel_id text,
			position int,
			key text,
			src text,
			poster text,
			title text,
			PRIMARY KEY (reel_id, position)
		) WITH CLUSTERING ORDER BY (position ASC)`, keyspace),
	}
}

func ensureColumn(session *gocql.Session, keyspace, table, column string) error {
	err := session.Query(fmt.Sprintf(`ALTER TABLE %s.%s ADD %s`, keyspace, table, column)).Exec()
	if err == nil || isAlreadyExists(err) {
		return nil
	}
	return err
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already") || strings.Contains(msg, "conflict")
}
