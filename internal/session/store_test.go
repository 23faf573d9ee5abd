package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook/internal/model"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func sampleStory() *model.Story {
	return &model.Story{
		Title:       "The Lost Map",
		Category:    "Adventure",
		Subcategory: "Treasure_Hunt",
		Slides: []model.Slide{
			{SlideNumber: 1, StoryText: "It begins.", ImagePrompt: "hero with a map"},
			{SlideNumber: 2, StoryText: "It ends.", ImagePrompt: "hero with treasure"},
		},
	}
}

func TestCreateAndReadAvatar(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Create(jpegBytes)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "session id should be a UUID")

	got, err := s.Avatar(id)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, got)
	assert.Equal(t, 1, s.Count())
}

func TestAvatarUnknownSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Avatar(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Avatar("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound, "non-UUID ids are rejected outright")
}

func TestStoryRoundtrip(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create(jpegBytes)
	require.NoError(t, err)

	_, err = s.Story(id)
	assert.ErrorIs(t, err, ErrNotFound, "no story persisted yet")

	want := sampleStory()
	require.NoError(t, s.PutStory(id, want))

	got, err := s.Story(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPutStoryUnknownSession(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.PutStory(uuid.NewString(), sampleStory()), ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create(jpegBytes)
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	_, err = s.Avatar(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Count())

	assert.NoError(t, s.Delete(id), "second delete succeeds silently")
	assert.NoError(t, s.Delete(uuid.NewString()), "deleting a never-created id succeeds")
	assert.NoError(t, s.Delete("not-a-uuid"))
}

func TestDeleteRacingReadReportsNotFound(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create(jpegBytes)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := s.Avatar(id); err != nil {
				assert.ErrorIs(t, err, ErrNotFound)
			}
		}
	}()
	require.NoError(t, s.Delete(id))
	<-done
}

func TestSweepZeroAgeDeletesEverything(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Create(jpegBytes)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	removed := s.Sweep(0)
	assert.Equal(t, 3, removed)
	for _, id := range ids {
		_, err := s.Avatar(id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 0, s.Count())
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create(jpegBytes)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Sweep(time.Hour))
	_, err = s.Avatar(id)
	assert.NoError(t, err)
}

func TestSweepReclaimsUntrackedDirectories(t *testing.T) {
	root := t.TempDir()
	orphan := uuid.NewString()
	require.NoError(t, os.MkdirAll(filepath.Join(root, orphan), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, orphan, "avatar.jpg"), jpegBytes, 0o644))

	s, err := NewStore(root)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep(0), "directories left by a previous process get swept")
	_, err = os.Stat(filepath.Join(root, orphan))
	assert.True(t, os.IsNotExist(err))
}

func TestSweepIgnoresForeignDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-session"), 0o755))

	s, err := NewStore(root)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Sweep(0))
	_, err = os.Stat(filepath.Join(root, "not-a-session"))
	assert.NoError(t, err)
}
