package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"serviceinfo/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePusher struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakePusher) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(int64(len(f.values)))
	}
	return cmd
}

func TestRedisNotifierServiceApproved(t *testing.T) {
	p := &fakePusher{}
	n := NewRedisNotifier(p, "q")

	provider := &models.Provider{ID: 2, NameEN: "Org", UserID: uuid.New()}
	svc := &models.Service{ID: 9, NameEN: "Clinic"}
	require.NoError(t, n.ServiceApproved(context.Background(), svc, provider))

	assert.Equal(t, "q", p.key)
	require.Len(t, p.values, 1)
	var msg Message
	require.NoError(t, json.Unmarshal(p.values[0].([]byte), &msg))
	assert.Equal(t, KindServiceApproved, msg.Kind)
	assert.Equal(t, provider.UserID.String(), msg.UserID)
	assert.Equal(t, "9", msg.Data["service_id"])
	assert.Equal(t, "/api/v1/services/9", msg.Data["service_url"])
}

func TestRedisNotifierPropagatesErrors(t *testing.T) {
	n := NewRedisNotifier(&fakePusher{err: errors.New("down")}, "q")
	err := n.ActivationRequested(context.Background(), &models.User{Email: "a@b.c"}, "https://x/?key=1")
	assert.ErrorContains(t, err, "enqueue activation_requested")
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(zap.NewNop())
	assert.NoError(t, n.ActivationRequested(context.Background(), &models.User{}, "link"))
	assert.NoError(t, n.ServiceApproved(context.Background(), &models.Service{}, &models.Provider{}))
}

func TestNewRedisClientEmptyURL(t *testing.T) {
	c, err := NewRedisClient(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, c)
}
