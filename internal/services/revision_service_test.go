package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevision_StartsUnsetAndBumps(t *testing.T) {
	f := newServiceFixture(t)

	revision, err := f.revision.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), revision)

	require.NoError(t, f.revision.Bump())
	revision, err = f.revision.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(1), revision)

	require.NoError(t, f.revision.Bump())
	revision, err = f.revision.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(2), revision)
}

func TestRevision_ChangedAtTracksBumps(t *testing.T) {
	f := newServiceFixture(t)

	changedAt, err := f.revision.ChangedAt()
	require.NoError(t, err)
	assert.True(t, changedAt.Equal(time.Unix(0, 0)))

	before := time.Now().Add(-time.Second)
	require.NoError(t, f.revision.Bump())
	changedAt, err = f.revision.ChangedAt()
	require.NoError(t, err)
	assert.True(t, changedAt.After(before))
}

func TestUserdata_SetGetDelete(t *testing.T) {
	f := newServiceFixture(t)

	_, found, err := f.userdata.Get("k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, f.userdata.Set("k", "v"))
	value, found, err := f.userdata.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", value)

	require.NoError(t, f.userdata.Delete("k"))
	_, found, err = f.userdata.Get("k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserdata_LPushPrependsAndRanges(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.userdata.LPush("list", `"a"`))
	require.NoError(t, f.userdata.LPush("list", `"b"`))
	require.NoError(t, f.userdata.LPush("list", `"c"`))

	items, err := f.userdata.LRange("list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{`"c"`, `"b"`, `"a"`}, items)

	items, err = f.userdata.LRange("list", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{`"c"`, `"b"`}, items)
}
