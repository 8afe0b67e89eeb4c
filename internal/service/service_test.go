package service

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/pkg/database"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testStore struct {
	DB          *gorm.DB
	Users       *repository.UserRepository
	Classes     *repository.ClassRepository
	Lessons     *repository.LessonRepository
	Assignments *repository.AssignmentRepository
	Progress    *repository.ProgressRepository
}

func setupStore(t *testing.T) *testStore {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testStore{
		DB:          db,
		Users:       repository.NewUserRepository(db),
		Classes:     repository.NewClassRepository(db),
		Lessons:     repository.NewLessonRepository(db),
		Assignments: repository.NewAssignmentRepository(db),
		Progress:    repository.NewProgressRepository(db),
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v.UTC()
}

func (s *testStore) addUser(t *testing.T, id string, role model.UserRole, classID *string) *model.User {
	t.Helper()
	user := &model.User{UUIDBase: model.UUIDBase{ID: id}, Name: id, Email: id + "@example.org", Role: role, ClassID: classID}
	if err := s.Users.CreateProfile(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return user
}

func (s *testStore) addLesson(t *testing.T, id string, title map[string]interface{}) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{UUIDBase: model.UUIDBase{ID: id}, Subject: "math", Title: title}
	if err := s.Lessons.Save(context.Background(), lesson); err != nil {
		t.Fatalf("save lesson %s: %v", id, err)
	}
	return lesson
}

func (s *testStore) addAssignment(t *testing.T, id, classID, lessonID string, at time.Time) {
	t.Helper()
	err := s.Assignments.Create(context.Background(), &model.Assignment{
		ID: id, ClassID: classID, LessonID: lessonID, AssignedBy: "teacher", AssignedAt: at,
	})
	if err != nil {
		t.Fatalf("create assignment %s: %v", id, err)
	}
}

func strPtr(s string) *string { return &s }
