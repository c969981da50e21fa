package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestBinAllocationColumnScale(t *testing.T) {
	s, err := schema.Parse(&BinAllocation{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "production_planning", s.Table)

	// доли вроде 33.3333% и тонны с точностью до килограмма не округляются
	assert.Equal(t, schema.DataType("decimal(9,4)"), s.LookUpField("Percentage").DataType)
	assert.Equal(t, schema.DataType("decimal(14,6)"), s.LookUpField("TonsAllocated").DataType)
}
