package repository

import (
	"testing"

	"github.com/ncobase/shopconsole/data/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPageOptions(t *testing.T) {
	opts := pageOptions(10000, 5000)

	assert.Equal(t, bson.D{{Key: "joinedAt", Value: 1}}, opts.Sort)
	assert.Equal(t, bson.D{{Key: "_id", Value: 0}}, opts.Projection)
	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(10000), *opts.Skip)
	assert.Equal(t, int64(5000), *opts.Limit)
}

func TestNewUserRepositoryValidation(t *testing.T) {
	_, err := NewUserRepository(nil, "bot_users", nil)
	assert.Error(t, err)

	_, err = NewUserRepository(&connection.MongoManager{}, "", nil)
	assert.Error(t, err)
}
