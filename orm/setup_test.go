package orm

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory sqlite database
func SetupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := Open("sqlite", dsn)
	assert.NoError(t, err)
	return db
}
