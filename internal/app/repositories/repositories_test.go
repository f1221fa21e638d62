package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/unisync/internal/app/models"
)

func TestInsertQueryPlaceholders(t *testing.T) {
	row := &models.Student{}
	assert.Equal(t,
		"INSERT INTO students (group_id, full_name, enrollment_record) VALUES ($1, $2, $3) RETURNING id",
		insertQuery(DialectPostgres, row))
	assert.Equal(t,
		"INSERT INTO students (group_id, full_name, enrollment_record) VALUES (?, ?, ?) RETURNING id",
		insertQuery(DialectSQLite, row))
}

func TestSelectQuery(t *testing.T) {
	assert.Equal(t, "SELECT id, group_id, session_id, room, capacity FROM schedule_slots ORDER BY id",
		selectQuery(models.EntityScheduleSlot))
}

func TestPendingChunks(t *testing.T) {
	rows := make([]models.Row, 5)
	for i := range rows {
		rows[i] = &models.Organization{}
	}
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, pendingChunks(rows, 2))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, pendingChunks(rows, 0))

	rows[0].SetID(10)
	rows[1].SetID(11)
	rows[3].SetID(12)
	assert.Equal(t, [][]int{{2, 4}}, pendingChunks(rows, 2))

	rows[2].SetID(13)
	rows[4].SetID(14)
	assert.Empty(t, pendingChunks(rows, 2))
}
