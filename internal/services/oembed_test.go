package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout-backend/internal/models"
)

func TestOEmbedProbe_Signals(t *testing.T) {
	var gotURL, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"A walk","html":"<iframe width=\"200\" height=\"113\"></iframe>","thumbnail_width":480,"thumbnail_height":360}`)
	}))
	defer srv.Close()

	s, err := NewOEmbedProbe(srv.Client(), srv.URL).Signals(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", gotURL)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "A walk", s.Title)
	assert.Equal(t, 480, s.ThumbnailWidth)
	assert.Equal(t, 360, s.ThumbnailHeight)
	assert.True(t, IsShortFormLayout(s), "legacy short embed size")
}

func TestOEmbedProbe_Errors(t *testing.T) {
	t.Run("not found is not retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewOEmbedProbe(srv.Client(), srv.URL).Signals(context.Background(), "abc")
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("server error is retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"title":"ok","thumbnail_width":480,"thumbnail_height":270}`)
		}))
		defer srv.Close()

		p := NewOEmbedProbe(srv.Client(), srv.URL)
		p.retry = RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
		s, err := p.Signals(context.Background(), "abc")
		require.NoError(t, err)
		assert.False(t, IsShortFormLayout(s))
		assert.Equal(t, 2, calls)
	})
}

func TestIsShortFormLayout(t *testing.T) {
	tests := []struct {
		name string
		in   *models.LayoutSignals
		want bool
	}{
		{"nil", nil, false},
		{"landscape", &models.LayoutSignals{Title: "Dog rescue", ThumbnailWidth: 480, ThumbnailHeight: 270}, false},
		{"shorts path", &models.LayoutSignals{HTML: `<iframe src="https://youtube.com/shorts/x">`}, true},
		{"vertical thumbnail", &models.LayoutSignals{ThumbnailWidth: 270, ThumbnailHeight: 480}, true},
		{"title hashtag", &models.LayoutSignals{Title: "Cute #Shorts", ThumbnailWidth: 480, ThumbnailHeight: 270}, true},
		{"embed size", &models.LayoutSignals{HTML: `<iframe width="200" height="113">`}, true},
		{"missing thumbnail", &models.LayoutSignals{Title: "Plain"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsShortFormLayout(tt.in))
		})
	}
}
