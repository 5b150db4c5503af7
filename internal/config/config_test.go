package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frame-script/framescript/internal/config"
)

func TestMaxCacheBytesValueParsesHumanSize(t *testing.T) {
	c := config.Cache{MaxCacheBytes: "4GiB"}
	v, err := c.MaxCacheBytesValue()
	require.NoError(t, err)
	require.EqualValues(t, 4<<30, v)
}

func TestMaxCacheBytesValueRejectsGarbage(t *testing.T) {
	c := config.Cache{MaxCacheBytes: "not-a-size"}
	_, err := c.MaxCacheBytesValue()
	require.Error(t, err)
}
