package connection

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ncobase/shopconsole/data/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rc, err := NewRedisClient(&config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()
}

func TestNewRedisClientEmpty(t *testing.T) {
	_, err := NewRedisClient(&config.Redis{})
	assert.Error(t, err)

	_, err = NewRedisClient(nil)
	assert.Error(t, err)
}

func TestNewMongoManagerRequiresURI(t *testing.T) {
	_, err := NewMongoManager(&config.MongoDB{})
	assert.Error(t, err)
}

func TestRoundRobin(t *testing.T) {
	a, b := &mongo.Client{}, &mongo.Client{}
	rb := NewMongoRoundRobinBalancer()

	first, err := rb.Next([]*mongo.Client{a, b})
	require.NoError(t, err)
	second, err := rb.Next([]*mongo.Client{a, b})
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	_, err = rb.Next(nil)
	assert.ErrorIs(t, err, ErrNoAvailableSlaves)
}

func TestWeightBalancer(t *testing.T) {
	a, b := &mongo.Client{}, &mongo.Client{}
	wb := NewMongoWeightBalancer([]*config.MongoNode{{Weight: 3}, {Weight: 1}})

	counts := map[*mongo.Client]int{}
	for i := 0; i < 8; i++ {
		c, err := wb.Next([]*mongo.Client{a, b})
		require.NoError(t, err)
		counts[c]++
	}
	assert.Equal(t, 6, counts[a])
	assert.Equal(t, 2, counts[b])
}
