package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/webhook-intake/internal/repository"
	"github.com/nimasrn/webhook-intake/pkg/pg"
	"github.com/nimasrn/webhook-intake/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	// TranslateError matches the production dialector setup so a
	// primary key collision surfaces as gorm.ErrDuplicatedKey
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&repository.MessageEntity{})
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T, connName string) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestMessage(t *testing.T, db *pg.DB, messageID, from, ts string, text *string) *repository.MessageEntity {
	ctx := context.Background()
	msg := &repository.MessageEntity{
		MessageID:  messageID,
		FromMSISDN: from,
		ToMSISDN:   "+14155550100",
		TS:         ts,
		Text:       text,
		CreatedAt:  time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	err := db.Write(ctx).Create(msg).Error
	require.NoError(t, err)
	return msg
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
