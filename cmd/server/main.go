package main

import (
	"context"
	"fmt"
	"log"

	"junction/internal/api"
	"junction/internal/catalog"
	"junction/internal/config"
	"junction/internal/dsl"
	"junction/internal/pg"
)

func main() {
	cfg := config.LoadWithPath("config.json")

	// 1. Загружаем DSL-сущности и манифесты плагинов
	entities, err := dsl.LoadAllEntities(cfg.DSLDir)
	if err != nil {
		log.Fatalf("DSL load error: %v", err)
	}
	fmt.Printf("Loaded entities: %d\n", len(entities))

	// 2. Линтер: ошибки останавливают запуск, предупреждения: в лог
	issues := catalog.Lint(entities)
	for _, it := range issues {
		log.Printf("schema %s: %s %s.%s: %s", it.Severity, it.Code, it.Entity, it.Field, it.Message)
	}
	if blocking := catalog.Blocking(issues); len(blocking) > 0 {
		log.Fatalf("schema has %d blocking issue(s)", len(blocking))
	}

	// 3. Регистр + схемы таблиц связей
	cat, err := catalog.Build(entities)
	if err != nil {
		log.Fatalf("catalog build error: %v", err)
	}
	fmt.Printf("Catalog revision %s: %d mapping table(s)\n", cat.Revision, len(cat.Mappings))

	// 4. Применяем DDL, если указана БД
	if cfg.DBURL != "" && cfg.AutoMigrate {
		ctx := context.Background()
		db, err := pg.Open(ctx, cfg.DBURL)
		if err != nil {
			log.Fatalf("DB open error: %v", err)
		}
		ddl, err := pg.GenerateDDL(cat, cfg.DBSchema)
		if err != nil {
			log.Fatalf("DDL generation error: %v", err)
		}
		if err := pg.ApplyDDL(ctx, db, ddl); err != nil {
			log.Fatalf("%v", err)
		}
		_ = db.Close()
		fmt.Printf("DDL applied to schema %q\n", cfg.DBSchema)
	}

	// 5. Meta API
	state := api.NewState(cat, cfg.DSLDir, cfg.DBSchema)
	fmt.Printf("Starting on :%s...\n", cfg.Port)
	if err := api.RunServer(":"+cfg.Port, state); err != nil {
		log.Fatalf("server: %v", err)
	}
}
