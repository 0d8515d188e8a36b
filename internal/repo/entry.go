package repo

import (
	"fmt"
	"time"

	"monitorHub/internal/global"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type entryRepo struct {
	g  InterGormDBCli
	db *gorm.DB
}

func (e entryRepo) DB() *gorm.DB {
	return e.db
}

type (
	EntryRepo struct {
		dutyRule  InterDutyRuleRepo
		dutyPlan  InterDutyPlanRepo
		userGroup InterUserGroupRepo
		cluster   InterClusterRepo
		collect   InterCollectRepo
		metadata  InterMetadataRepo
	}

	InterEntryRepo interface {
		DutyRule() InterDutyRuleRepo
		DutyPlan() InterDutyPlanRepo
		UserGroup() InterUserGroupRepo
		Cluster() InterClusterRepo
		Collect() InterCollectRepo
		Metadata() InterMetadataRepo
	}
)

func NewRepoEntry() InterEntryRepo {
	db := initGorm()
	g := NewInterGormDBCli(db)

	return &EntryRepo{
		dutyRule:  newDutyRuleInterface(db, g),
		dutyPlan:  newDutyPlanInterface(db, g),
		userGroup: newUserGroupInterface(db, g),
		cluster:   newClusterInterface(db, g),
		collect:   newCollectInterface(db, g),
		metadata:  newMetadataInterface(db, g),
	}
}

func (e EntryRepo) DutyRule() InterDutyRuleRepo   { return e.dutyRule }
func (e EntryRepo) DutyPlan() InterDutyPlanRepo   { return e.dutyPlan }
func (e EntryRepo) UserGroup() InterUserGroupRepo { return e.userGroup }
func (e EntryRepo) Cluster() InterClusterRepo     { return e.cluster }
func (e EntryRepo) Collect() InterCollectRepo     { return e.collect }
func (e EntryRepo) Metadata() InterMetadataRepo   { return e.metadata }

func initGorm() *gorm.DB {
	cfg := global.Config.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s",
		cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.DBName, cfg.Timeout)

	logLevel := logger.Silent
	if global.Config.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		panic(fmt.Errorf("数据库连接失败: %w", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Errorf("获取数据库连接池失败: %w", err))
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db
}
