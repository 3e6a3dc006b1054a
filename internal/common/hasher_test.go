package common_test

import (
	"testing"

	"github.com/central-university-dev/go-WebMonitor/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestHashContent_Deterministic(t *testing.T) {
	first := common.HashContent("список вакансий компании")
	second := common.HashContent("список вакансий компании")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashContent_DifferentContent(t *testing.T) {
	first := common.HashContent("цена: 100")
	second := common.HashContent("цена: 120")

	assert.NotEqual(t, first, second)
}

func TestHashContent_EmptyContent(t *testing.T) {
	hash := common.HashContent("")

	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", hash)
}
