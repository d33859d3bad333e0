package configstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	s, err := NewRedisStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	assert.NoError(s.Client.FlushDB(ctx).Err())

	testStoreBasics(t, s)

	doc, err := s.Export(ctx)
	assert.NoError(err)
	assert.Equal([]string{key2.ChannelID}, doc.SupervisedChannels[guild1])
	assert.Equal(5, doc.ChannelRates[key1.String()])

	assert.NoError(s.Client.FlushDB(ctx).Err())
	assert.NoError(s.Import(ctx, doc))
	cs, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(60, cs.ThrottleCeiling())
}

func TestRedisStoreImportReplaces(t *testing.T) {
	t.Skip("live test, need redis running locally")
	ctx := context.Background()

	s, err := NewRedisStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	assert.NoError(t, s.Client.FlushDB(ctx).Err())
	testStoreImport(t, s)
}
