package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateCreatesSurveyTables(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, table := range []string{"students", "survey_templates", "survey_assignments", "survey_responses", "activity_logs"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
	require.True(t, db.Migrator().HasIndex("survey_assignments", "idx_survey_assignments_pending"))
}

func TestConnectPostgresRejectsEmptyDSN(t *testing.T) {
	_, err := ConnectPostgres("", PoolOptions{})
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.Equal(t, 5*time.Second, client.Options().DialTimeout)

	_, err = ConnectRedis(context.Background(), "", "survey-test")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "://bad", "survey-test")
	require.Error(t, err)
}

func TestConnectNATSDisabledWithoutURL(t *testing.T) {
	conn, err := ConnectNATS("", "survey-test")
	require.NoError(t, err)
	require.Nil(t, conn)
}
