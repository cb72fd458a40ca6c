package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogicalCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"product", "product"},
		{"sales-channel", "salesChannel"},
		{"sales_channel", "salesChannel"},
		{"custom-entity-blog", "customEntityBlog"},
		{"order_line-item", "orderLineItem"},
		{"a", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToLogicalCase(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToLogicalCase_Invalid(t *testing.T) {
	for _, in := range []string{"", "sales--channel", "-product", "product_", "Product", "sales channel"} {
		t.Run(in, func(t *testing.T) {
			_, err := ToLogicalCase(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIdentifier))

			var ie *InvalidIdentifierError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, in, ie.Name)
		})
	}
}

func TestColumns(t *testing.T) {
	assert.Equal(t, "product_id", ForeignKeyColumn("product"))
	assert.Equal(t, "sales-channel_id", ForeignKeyColumn("sales-channel"))
	assert.Equal(t, "product_version_id", VersionColumn("product"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "products", TableName("product"))
	assert.Equal(t, "categories", TableName("category"))
	assert.Equal(t, "e_users", TableName("user"))
	assert.Equal(t, "category_product", MappingTableName("category_product"))
	assert.Equal(t, "e_order", MappingTableName("order"))
}
