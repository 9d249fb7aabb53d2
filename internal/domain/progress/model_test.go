package progress

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/shared"
)

func TestNewUserProgress(t *testing.T) {
	l1 := catalog.Level{ID: uuid.New(), Generators: gens(uuid.New())}
	topics := []catalog.Topic{
		{ID: uuid.New(), Levels: []catalog.Level{l1}},
		{ID: uuid.New()},
	}

	p := NewUserProgress(topics)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, topics[0].ID, p.CurrentTopicID)
	assert.Equal(t, l1.ID, p.CurrentLevelID)
	assert.Nil(t, p.CurrentTask)
	require.Len(t, p.TopicsProgress, 2)
	for _, topic := range topics {
		assert.Equal(t, topic.ID, p.TopicsProgress[topic.ID].TopicID)
		assert.Empty(t, p.TopicsProgress[topic.ID].LevelProgress)
	}
}

func TestNewUserProgress_EmptyCatalog(t *testing.T) {
	p := NewUserProgress(nil)

	assert.Equal(t, uuid.Nil, p.CurrentTopicID)
	assert.Equal(t, uuid.Nil, p.CurrentLevelID)
	assert.NotNil(t, p.TopicsProgress)
	assert.Empty(t, p.TopicsProgress)
}

func TestUserProgress_WithLevelCopies(t *testing.T) {
	topicID, levelID, g := uuid.New(), uuid.New(), uuid.New()
	p := NewUserProgress([]catalog.Topic{{ID: topicID}})

	next := p.WithLevel(topicID, LevelProgress{LevelID: levelID, Streaks: Streaks{g: 2}})

	assert.Empty(t, p.TopicsProgress[topicID].LevelProgress)
	assert.Equal(t, 2, next.TopicsProgress[topicID].LevelProgress[levelID].Streaks[g])
}

func TestUserProgress_WithLevelUnknownTopic(t *testing.T) {
	topicID, levelID := uuid.New(), uuid.New()

	next := UserProgress{}.WithLevel(topicID, LevelProgress{LevelID: levelID})

	require.Contains(t, next.TopicsProgress, topicID)
	assert.Contains(t, next.TopicsProgress[topicID].LevelProgress, levelID)
}

func TestUserProgress_Clone(t *testing.T) {
	topicID, levelID, g := uuid.New(), uuid.New(), uuid.New()
	p := UserProgress{}.
		WithLevel(topicID, LevelProgress{LevelID: levelID, Streaks: Streaks{g: 1}}).
		WithCurrentTask(&Task{GeneratorID: g, ParentGeneratorID: g, LevelID: levelID, TopicID: topicID})

	c := p.Clone()
	c.TopicsProgress[topicID].LevelProgress[levelID].Streaks[g] = 10
	c.CurrentTask.GeneratorID = uuid.New()

	assert.Equal(t, 1, p.TopicsProgress[topicID].LevelProgress[levelID].Streaks[g])
	assert.Equal(t, g, p.CurrentTask.GeneratorID)
	assert.True(t, p.HasCurrentTask())
}

func TestUserEntity_WithProgressKeepsOriginal(t *testing.T) {
	u := NewUserEntity(uuid.New(), nil)
	u.Version = 3

	next := u.WithProgress(u.Progress.WithPosition(uuid.New(), uuid.New()))

	assert.Equal(t, u.ID, next.ID)
	assert.Equal(t, int64(3), next.Version)
	assert.Equal(t, uuid.Nil, u.Progress.CurrentTopicID)
	assert.NotEqual(t, uuid.Nil, next.Progress.CurrentTopicID)
}

func TestCurrentStreak(t *testing.T) {
	topicID, levelID := uuid.New(), uuid.New()
	parent, other := uuid.New(), uuid.New()

	p := UserProgress{}.
		WithLevel(topicID, LevelProgress{LevelID: levelID, Streaks: Streaks{parent: 4, other: 2}}).
		WithPosition(topicID, levelID).
		WithCurrentTask(&Task{GeneratorID: uuid.New(), ParentGeneratorID: parent, LevelID: levelID, TopicID: topicID})

	tests := []struct {
		name    string
		query   StreakQuery
		want    int
		wantErr error
	}{
		{name: "all current", query: StreakQuery{}, want: 4},
		{name: "explicit generator", query: StreakQuery{Generator: Use(other)}, want: 2},
		{name: "explicit everything", query: StreakQuery{Topic: Use(topicID), Level: Use(levelID), Generator: Use(parent)}, want: 4},
		{name: "unknown topic", query: StreakQuery{Topic: Use(uuid.New())}, wantErr: shared.ErrTopicProgressNotFound},
		{name: "unknown level", query: StreakQuery{Level: Use(uuid.New())}, wantErr: shared.ErrLevelProgressNotFound},
		{name: "unknown generator", query: StreakQuery{Generator: Use(uuid.New())}, wantErr: shared.ErrStreakNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.CurrentStreak(tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, shared.IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentStreak_NoCurrentTask(t *testing.T) {
	topicID, levelID := uuid.New(), uuid.New()
	p := UserProgress{}.
		WithLevel(topicID, LevelProgress{LevelID: levelID, Streaks: Streaks{}}).
		WithPosition(topicID, levelID)

	_, err := p.CurrentStreak(StreakQuery{})

	assert.ErrorIs(t, err, shared.ErrNoCurrentTask)
	assert.True(t, shared.IsNotFound(err))
}

func TestOption(t *testing.T) {
	v, ok := Current[int]().Get()
	assert.False(t, ok)
	assert.Zero(t, v)

	v, ok = Use(5).Get()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	got, err := Current[int]().OrElse(func() (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, got)

	got, err = Use(1).OrElse(func() (int, error) { return 0, shared.ErrInvalidInput })
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
