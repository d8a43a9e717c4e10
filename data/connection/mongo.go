package connection

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncobase/shopconsole/data/config"
	"github.com/ncobase/shopconsole/logging/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNoAvailableSlaves = errors.New("no available read nodes")
	ErrInvalidStrategy   = errors.New("invalid load balance strategy")
)

// MongoManager holds the primary client and optional read nodes
type MongoManager struct {
	master   *mongo.Client
	slaves   []*mongo.Client
	strategy MongoLoadBalancer
	database string
	mutex    sync.RWMutex
}

// NewMongoManager connects to the primary and every reachable read node
func NewMongoManager(conf *config.MongoDB) (*MongoManager, error) {
	if conf == nil || conf.URI == "" {
		return nil, errors.New("mongodb uri is required")
	}

	master, err := newMongoClient(conf.URI)
	if err != nil {
		return nil, err
	}

	var slaves []*mongo.Client
	for i, slaveCfg := range conf.Slaves {
		slave, err := newMongoClient(slaveCfg.URI)
		if err != nil {
			logger.Warn(context.Background(), "Failed to connect to mongodb read node", "index", i, "error", err)
			continue
		}
		slaves = append(slaves, slave)
	}

	if len(slaves) == 0 {
		slaves = append(slaves, master)
	}

	var strategy MongoLoadBalancer
	switch conf.Strategy {
	case "round_robin", "":
		strategy = NewMongoRoundRobinBalancer()
	case "random":
		strategy = &MongoRandomBalancer{}
	case "weight":
		strategy = NewMongoWeightBalancer(conf.Slaves)
	default:
		_ = master.Disconnect(context.Background())
		return nil, ErrInvalidStrategy
	}

	return &MongoManager{
		master:   master,
		slaves:   slaves,
		strategy: strategy,
		database: conf.DatabaseName(),
	}, nil
}

// NewMongoManagerWithClient wraps an existing client, used by tests and tools
func NewMongoManagerWithClient(client *mongo.Client, database string) *MongoManager {
	return &MongoManager{
		master:   client,
		slaves:   []*mongo.Client{client},
		strategy: NewMongoRoundRobinBalancer(),
		database: database,
	}
}

// MongoLoadBalancer MongoDB load balancer
type MongoLoadBalancer interface {
	Next([]*mongo.Client) (*mongo.Client, error)
}

// MongoRoundRobinBalancer round-robin strategy
type MongoRoundRobinBalancer struct {
	current *uint64
}

func NewMongoRoundRobinBalancer() *MongoRoundRobinBalancer {
	var counter uint64
	return &MongoRoundRobinBalancer{current: &counter}
}

func (rb *MongoRoundRobinBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}
	next := atomic.AddUint64(rb.current, 1) % uint64(len(slaves))
	return slaves[next], nil
}

// MongoRandomBalancer random strategy
type MongoRandomBalancer struct{}

func (rb *MongoRandomBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}
	return slaves[rand.Intn(len(slaves))], nil
}

// MongoWeightBalancer weight strategy
type MongoWeightBalancer struct {
	weights []int
	current *uint64
}

func NewMongoWeightBalancer(nodes []*config.MongoNode) *MongoWeightBalancer {
	weights := make([]int, len(nodes))
	for i, node := range nodes {
		weights[i] = node.Weight
		if weights[i] <= 0 {
			weights[i] = 1
		}
	}
	var counter uint64
	return &MongoWeightBalancer{weights: weights, current: &counter}
}

func (wb *MongoWeightBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}
	// unreachable nodes were dropped, weights no longer line up
	if len(slaves) != len(wb.weights) {
		return slaves[atomic.AddUint64(wb.current, 1)%uint64(len(slaves))], nil
	}

	totalWeight := 0
	for _, w := range wb.weights {
		totalWeight += w
	}

	next := atomic.AddUint64(wb.current, 1) % uint64(totalWeight)

	var accumulator int
	for i, w := range wb.weights {
		accumulator += w
		if uint64(accumulator) > next {
			return slaves[i], nil
		}
	}
	return slaves[0], nil
}

// Master returns the primary client
func (m *MongoManager) Master() *mongo.Client {
	if m == nil {
		return nil
	}
	return m.master
}

// Slave returns a read client chosen by the load balancing strategy,
// falling back to the primary.
func (m *MongoManager) Slave() *mongo.Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if len(m.slaves) == 0 {
		return m.master
	}
	slave, err := m.strategy.Next(m.slaves)
	if err != nil {
		return m.master
	}
	return slave
}

// Database returns the configured database name
func (m *MongoManager) Database() string {
	return m.database
}

// WithTransaction runs fn inside a transaction on the primary
func (m *MongoManager) WithTransaction(ctx context.Context, fn func(mongo.SessionContext) error, opts ...*options.TransactionOptions) error {
	session, err := m.master.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sctx mongo.SessionContext) (any, error) {
		return nil, fn(sctx)
	}, opts...)

	return err
}

// GetDatabase returns the configured database from a read node or the primary
func (m *MongoManager) GetDatabase(readOnly bool) *mongo.Database {
	if readOnly {
		return m.Slave().Database(m.database)
	}
	return m.master.Database(m.database)
}

// GetCollection returns a collection of the configured database.
// readOnly selects a read node, otherwise the primary.
func (m *MongoManager) GetCollection(collName string, readOnly bool) *mongo.Collection {
	return m.GetDatabase(readOnly).Collection(collName)
}

// Health pings the primary and drops unreachable read nodes
func (m *MongoManager) Health(ctx context.Context) error {
	if err := m.master.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb primary health check failed: %w", err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var healthySlaves []*mongo.Client
	for _, slave := range m.slaves {
		if slave == m.master {
			healthySlaves = append(healthySlaves, slave)
			continue
		}
		if err := slave.Ping(ctx, nil); err != nil {
			logger.Warn(ctx, "MongoDB read node health check failed", "error", err)
			continue
		}
		healthySlaves = append(healthySlaves, slave)
	}

	m.slaves = healthySlaves
	if len(m.slaves) == 0 {
		m.slaves = append(m.slaves, m.master)
	}

	return nil
}

// Close closes all MongoDB connections
func (m *MongoManager) Close(ctx context.Context) error {
	var errs []error

	if err := m.master.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error closing primary connection: %w", err))
	}

	for i, slave := range m.slaves {
		if slave != m.master {
			if err := slave.Disconnect(ctx); err != nil {
				errs = append(errs, fmt.Errorf("error closing read node %d connection: %w", i, err))
			}
		}
	}

	return errors.Join(errs...)
}

// newMongoClient connects and pings a MongoDB client
func newMongoClient(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}

	return client, nil
}
