package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejooo/fb_messenger/pkg/messenger"
)

func TestBuildBodyParsesAsEnvelope(t *testing.T) {
	body, err := buildBody("P9", 7, 3)
	require.NoError(t, err)

	evs, err := messenger.ParseEnvelope(body, "tok")
	require.NoError(t, err)
	require.Len(t, evs, 3)
	for _, ev := range evs {
		require.Equal(t, messenger.EventMessage, ev.Type)
		require.Equal(t, "P9", ev.PageID)
		require.Equal(t, "load-7", ev.SenderID)
	}
}
