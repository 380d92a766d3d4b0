package libutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name    string
	deleted *[]string
}

func (r recorder) Delete() {
	*r.deleted = append(*r.deleted, r.name)
}

func TestDeleteAllReverseOrder(t *testing.T) {
	var deleted []string
	DeleteAll([]Deleter{
		recorder{"a", &deleted},
		nil,
		recorder{"b", &deleted},
		recorder{"c", &deleted},
	})
	assert.Equal(t, []string{"c", "b", "a"}, deleted)
}
