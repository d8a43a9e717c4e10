package repositorytest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUsersPagesInOrderWithoutID(t *testing.T) {
	users := NewUsers(
		bson.D{{Key: "_id", Value: 1}, {Key: "username", Value: "c"}, {Key: "joinedAt", Value: int64(30)}},
		bson.D{{Key: "_id", Value: 2}, {Key: "username", Value: "a"}, {Key: "joinedAt", Value: int64(10)}},
		bson.D{{Key: "_id", Value: 3}, {Key: "username", Value: "b"}, {Key: "joinedAt", Value: int64(20)}},
	)
	ctx := context.Background()

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	page, err := users.FindPage(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Lookup("username").StringValue())
	assert.Equal(t, "c", page[1].Lookup("username").StringValue())
	_, err = page[0].LookupErr("_id")
	assert.Error(t, err)
}

func TestUsersErr(t *testing.T) {
	users := NewUsers()
	users.Err = errors.New("down")

	_, err := users.Count(context.Background())
	assert.ErrorIs(t, err, users.Err)
	_, err = users.ReplaceAll(context.Background(), nil, false)
	assert.ErrorIs(t, err, users.Err)
}
