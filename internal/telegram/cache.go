package telegram

import (
	"net/http"
	"sync"
)

// Factory hands out a client for a bot token.
type Factory interface {
	Client(token string) API
}

// ClientCache keeps one Client per bot token so repeated syncs reuse the
// same connection pool.
type ClientCache struct {
	http    *http.Client
	baseURL string

	mu      sync.Mutex
	clients map[string]*Client
}

func NewClientCache(httpClient *http.Client, baseURL string) *ClientCache {
	return &ClientCache{
		http:    httpClient,
		baseURL: baseURL,
		clients: make(map[string]*Client),
	}
}

func (c *ClientCache) Client(token string) API {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[token]; ok {
		return cl
	}
	cl := NewClient(c.http, c.baseURL, token)
	c.clients[token] = cl
	return cl
}
