// 从 YAML 文件导入课程
//
// 课程内容在外部编写，本脚本按 id 插入或整体覆盖已有课程。
//
// 用法: go run scripts/seed_lessons.go -file scripts/lessons.yaml

package main

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/pkg/database"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	gormlogger "gorm.io/gorm/logger"
)

type lessonFile struct {
	Lessons []lessonEntry `yaml:"lessons"`
}

type lessonEntry struct {
	ID          string            `yaml:"id"`
	Subject     string            `yaml:"subject"`
	Title       map[string]string `yaml:"title"`
	Description map[string]string `yaml:"description"`
	ContentURL  map[string]string `yaml:"content_url"`
}

func localized(values map[string]string) datatypes.JSONMap {
	m := datatypes.JSONMap{}
	for lang, v := range values {
		m[lang] = v
	}
	return m
}

func main() {
	file := flag.String("file", "scripts/lessons.yaml", "课程 YAML 文件")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取课程文件: %v", err)
	}

	var lf lessonFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		log.Fatalf("解析课程文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, gormlogger.Warn)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	lessons := repository.NewLessonRepository(db)

	ctx := context.Background()
	for _, entry := range lf.Lessons {
		lesson := &model.Lesson{
			UUIDBase:    model.UUIDBase{ID: entry.ID},
			Subject:     entry.Subject,
			Title:       localized(entry.Title),
			Description: localized(entry.Description),
			ContentURL:  localized(entry.ContentURL),
		}
		if err := lessons.Save(ctx, lesson); err != nil {
			log.Fatalf("导入课程 %q 失败: %v", entry.ID, err)
		}
		log.Printf("课程已导入: %s (%s)", lesson.ID, model.Resolve(lesson.Title, model.DefaultLanguage))
	}
	log.Printf("完成！共 %d 个课程", len(lf.Lessons))
}
