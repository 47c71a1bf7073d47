package bmapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.battlemetrics.com"

type Client struct {
	http    *http.Client
	baseURL string
	token   string
	server  string
	log     *zap.Logger

	mu              sync.RWMutex
	playersToDetect map[string]string // кого отслеживаем (id->name, name может быть пустым)
	lastPlayersScan map[string]string // последний снимок (только отслеживаемые)
	running         bool
	stopCh          chan struct{}
	done            chan struct{}

	etag string // для If-None-Match
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BMResponse struct {
	Data struct {
		ID            string `json:"id"`
		Relationships struct {
			Players struct {
				Data []struct {
					Type string `json:"type"`
					ID   string `json:"id"`
				} `json:"data"`
			} `json:"players"`
		} `json:"relationships"`
	} `json:"data"`
	Included []struct {
		Type       string `json:"type"` // "player"
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"included"`
}

type BMConf struct {
	Server  string `json:"server"`
	Token   string `json:"token"`
	BaseURL string `json:"base_url,omitempty"`
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithBaseURL подменяет адрес API (тесты, зеркала).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// Создает новый клиент BM Api (задаем все параметры)
func NewClient(token, server string, players []Player, opts ...Option) *Client {
	c := &Client{
		http:            &http.Client{Timeout: 10 * time.Second},
		baseURL:         DefaultBaseURL,
		token:           token,
		server:          server,
		log:             zap.NewNop(),
		playersToDetect: make(map[string]string, len(players)),
		lastPlayersScan: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "bmapi"), zap.String("bm_server", server))
	for _, p := range players {
		c.playersToDetect[p.ID] = p.Name
	}
	return c
}

// Создает новый клиент BM Api по файлу конфигурации
func NewClientFromConf(conf BMConf, opts ...Option) *Client {
	if conf.BaseURL != "" {
		opts = append([]Option{WithBaseURL(conf.BaseURL)}, opts...)
	}
	return NewClient(conf.Token, conf.Server, nil, opts...)
}

// AddPlayer добавляет нового игрока для отслеживания
func (c *Client) AddPlayer(players ...Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range players {
		c.playersToDetect[p.ID] = p.Name
	}
}

// RemovePlayer удаляет игрока с данным playerId из списка отслеживаемых
func (c *Client) RemovePlayer(playerId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.playersToDetect, playerId)
	delete(c.lastPlayersScan, playerId)
}

// Tracked - копия списка отслеживаемых (id->name).
func (c *Client) Tracked() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]string, len(c.playersToDetect))
	for k, v := range c.playersToDetect {
		cp[k] = v
	}
	return cp
}

// Players возвращает список отслеживаемых игроков в сети на момент последнего скана
func (c *Client) Players() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]string, len(c.lastPlayersScan))
	for k, v := range c.lastPlayersScan {
		cp[k] = v
	}
	return cp
}
