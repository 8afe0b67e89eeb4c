package service

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/util"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// progressChange is the data payload of a "progress" change. Any student_id
// in the payload is ignored; ownership always comes from the caller.
type progressChange struct {
	LessonID        string     `mapstructure:"lesson_id"`
	ProgressPercent *float64   `mapstructure:"progress_percent"`
	StartedAt       *time.Time `mapstructure:"started_at"`
	CompletedAt     *time.Time `mapstructure:"completed_at"`
}

var timeType = reflect.TypeOf(time.Time{})

func timestampHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	return util.ParseTimestamp(data.(string))
}

func decodeProgressChange(data map[string]interface{}) (*progressChange, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: data is required", util.ErrInvalidChange)
	}

	var pc progressChange
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timestampHook,
		WeaklyTypedInput: true,
		Result:           &pc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidChange, err)
	}

	pc.LessonID = strings.TrimSpace(pc.LessonID)
	if pc.LessonID == "" {
		return nil, fmt.Errorf("%w: lesson_id is required", util.ErrInvalidChange)
	}
	if pc.ProgressPercent == nil {
		return nil, fmt.Errorf("%w: progress_percent is required", util.ErrInvalidChange)
	}
	if p := *pc.ProgressPercent; p != math.Trunc(p) {
		return nil, fmt.Errorf("%w: progress_percent %v is not a whole number", util.ErrInvalidChange, p)
	} else if p < 0 || p > 100 {
		return nil, fmt.Errorf("%w: progress_percent %v is outside 0..100", util.ErrInvalidChange, p)
	}
	return &pc, nil
}

// progressInput normalizes a decoded change for userID. The change
// timestamp becomes the sync_token and the default for started_at and
// completed_at.
func progressInput(userID string, pc *progressChange, changedAt time.Time) model.ProgressInput {
	in := model.ProgressInput{
		StudentID:       userID,
		LessonID:        pc.LessonID,
		ProgressPercent: int(*pc.ProgressPercent),
		StartedAt:       pc.StartedAt,
		CompletedAt:     pc.CompletedAt,
		SyncToken:       &changedAt,
	}
	if in.StartedAt == nil {
		in.StartedAt = &changedAt
	}
	if in.CompletedAt == nil {
		in.CompletedAt = &changedAt
	}
	return in
}

func rejected(index int, entity string, err error) model.ChangeResult {
	return model.ChangeResult{
		Index:  index,
		Entity: entity,
		Status: model.ChangeRejected,
		Reason: err.Error(),
	}
}

func (s *SyncService) applyProgress(ctx context.Context, userID string, index int, change model.ChangeRecord) (model.ChangeResult, *model.Conflict) {
	changedAt, err := util.ParseTimestamp(change.Timestamp)
	if err != nil {
		return rejected(index, change.Entity, fmt.Errorf("%w: timestamp: %v", util.ErrInvalidChange, err)), nil
	}

	pc, err := decodeProgressChange(change.Data)
	if err != nil {
		return rejected(index, change.Entity, err), nil
	}

	rec := model.NewProgressRecord(progressInput(userID, pc, changedAt), s.now())
	stored, applied, err := s.Progress.UpsertIfNotOlder(ctx, rec)
	if err != nil {
		return rejected(index, change.Entity, fmt.Errorf("persist progress: %w", err)), nil
	}

	if !applied {
		var serverTime time.Time
		if stored.SyncToken != nil {
			serverTime = stored.SyncToken.UTC()
		}
		return model.ChangeResult{
				Index:  index,
				Entity: change.Entity,
				ID:     stored.ID,
				Status: model.ChangeConflict,
				Reason: util.ErrStaleChange.Error(),
			}, &model.Conflict{
				Entity:          model.EntityProgress,
				ID:              stored.ID,
				LessonID:        stored.LessonID,
				ClientTimestamp: changedAt,
				ServerTimestamp: serverTime,
				ServerData:      stored,
			}
	}

	return model.ChangeResult{
		Index:  index,
		Entity: change.Entity,
		ID:     stored.ID,
		Status: model.ChangeSynced,
	}, nil
}
