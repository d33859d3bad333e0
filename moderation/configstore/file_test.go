package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// same shape as the save.json written by earlier releases
const legacyJSON = `{
  "supervisedChannels": {
    "857689267744800800": ["1326315584417435648"]
  },
  "channelRates": {
    "857689267744800800:1326315584417435648": 5
  },
  "logChannels": {
    "857689267744800800": "766791173129502751"
  },
  "maxSlowmodes": {
    "857689267744800800:1326315584417435648": 120
  },
  "slowmodeDecay": {},
  "scamBusterChannels": {
    "857689267744800800": ["1392172773111107594"]
  }
}`

func TestFileStoreLoadLegacy(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "save.json")
	require.NoError(os.WriteFile(p, []byte(legacyJSON), 0o644))

	s, err := NewFileStore(p)
	require.NoError(err)

	cs, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.True(cs.IsSupervised())
	assert.Equal(5, cs.Rate)
	assert.Equal(120, cs.ThrottleCeiling())
	assert.Equal(20*time.Second, cs.DecayInterval())

	gs, err := s.GuildSettings(ctx, guild1)
	assert.NoError(err)
	assert.Equal("766791173129502751", gs.LogChannelID)
	assert.Equal([]string{"1392172773111107594"}, gs.Protected)
}

func TestFileStorePersists(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "save.json")
	s, err := NewFileStore(p)
	require.NoError(err)
	testStoreBasics(t, s)

	// reopen from disk
	again, err := NewFileStore(p)
	require.NoError(err)
	cs, err := again.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(5, cs.Rate)
	assert.Equal(60, cs.ThrottleCeiling())
	assert.False(cs.IsSupervised())

	gs, err := again.GuildSettings(ctx, guild1)
	assert.NoError(err)
	assert.Equal([]string{key2.ChannelID}, gs.Supervised)
	assert.Equal([]string{key2.ChannelID}, gs.Protected)

	// no temp files left behind
	ents, err := os.ReadDir(filepath.Dir(p))
	require.NoError(err)
	assert.Len(ents, 1)
}

func TestFileStoreBadJSON(t *testing.T) {
	assert := assert.New(t)
	p := filepath.Join(t.TempDir(), "save.json")
	assert.NoError(os.WriteFile(p, []byte("{not json"), 0o644))

	_, err := NewFileStore(p)
	assert.Error(err)
}

func TestFileStoreInvalidDocument(t *testing.T) {
	assert := assert.New(t)
	p := filepath.Join(t.TempDir(), "save.json")
	bad := strings.Replace(legacyJSON, `"857689267744800800:1326315584417435648": 120`, `"857689267744800800:1326315584417435648": 99999`, 1)
	bad = strings.Replace(bad, `"857689267744800800:1326315584417435648": 5`, `"857689267744800800/1326315584417435648": 5`, 1)
	assert.NoError(os.WriteFile(p, []byte(bad), 0o644))

	_, err := NewFileStore(p)
	assert.ErrorIs(err, ErrOutOfRange)
	assert.ErrorContains(err, "maxSlowmodes")
	assert.ErrorContains(err, "channelRates")

	_, err = LoadFileJSON(p)
	assert.Error(err)
}

func TestFileStoreImportReplaces(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "save.json"))
	require.NoError(t, err)
	testStoreImport(t, s)
}

func TestFileStoreWriteFailureKeepsState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "missing-dir", "save.json")
	s, err := NewFileStore(p)
	assert.NoError(err)

	_, err = s.SetSupervised(ctx, key1, true)
	assert.Error(err)
	cs, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.False(cs.IsSupervised(), fmt.Sprintf("%+v", cs))
}
