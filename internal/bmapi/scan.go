package bmapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// errNotModified - сервер ответил 304, снимок не изменился.
var errNotModified = errors.New("bmapi: not modified")

// StartScan запускает фоновый опрос и уведомления.
// notify вызывается строкой-сообщением (отправка в чат Rust+).
func (c *Client) StartScan(ctx context.Context, interval time.Duration, notify func(string)) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stopCh, c.done
	c.mu.Unlock()

	// стартовая инициализация - без уведомлений
	if cur, err := c.fetchPlayers(ctx); err == nil {
		c.mu.Lock()
		c.lastPlayersScan = cur
		c.mu.Unlock()
	} else {
		c.log.Warn("initial scan failed", zap.Error(err))
	}

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				msgs, err := c.Scan(ctx)
				if err != nil {
					c.log.Warn("scan failed", zap.Error(err))
					continue
				}
				for _, m := range msgs {
					notify(m)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.running = false
	done := c.done
	c.mu.Unlock()
	<-done
}

// Scan делает один опрос и возвращает уведомления о входе/выходе
// отслеживаемых игроков относительно прошлого снимка.
func (c *Client) Scan(ctx context.Context) ([]string, error) {
	cur, err := c.fetchPlayers(ctx)
	if errors.Is(err, errNotModified) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.lastPlayersScan
	var msgs []string
	// join
	for _, id := range sortedKeys(cur) {
		if _, ok := prev[id]; ok {
			continue
		}
		if wantName, track := c.playersToDetect[id]; track {
			if wantName == "" {
				wantName = cur[id]
			}
			msgs = append(msgs, fmt.Sprintf("➡ %s вошёл на сервер", wantName))
		}
	}
	// leave
	for _, id := range sortedKeys(prev) {
		if _, ok := cur[id]; ok {
			continue
		}
		if wantName, track := c.playersToDetect[id]; track {
			if wantName == "" {
				wantName = prev[id]
			}
			msgs = append(msgs, fmt.Sprintf("⬅ %s покинул сервер", wantName))
		}
	}
	c.lastPlayersScan = cur
	return msgs, nil
}

// IsOnline возвращает текущее состояние для всех отслеживаемых игроков.
// string:name, true - игрок на сервере, false - оффлайн.
func (c *Client) IsOnline() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make(map[string]bool, len(c.playersToDetect))
	for id, name := range c.playersToDetect {
		if name == "" {
			name = id
		}
		_, online := c.lastPlayersScan[id]
		status[name] = online
	}
	return status
}

func (c *Client) FormatOnlineInfo(players map[string]bool) string {
	var online, offline []string
	for name, isOnline := range players {
		if isOnline {
			online = append(online, name)
		} else {
			offline = append(offline, name)
		}
	}
	sort.Strings(online)
	sort.Strings(offline)
	return fmt.Sprintf("Онлайн: %s | Оффлайн: %s",
		strings.Join(online, ", "), strings.Join(offline, ", "))
}

// fetchPlayers - получает текущих игроков, фильтруя только отслеживаемых.
// Возвращает map[id]name только по тем, кто есть и в онлайне, и в watch-листе.
// Использует ETag: на 304 возвращает errNotModified.
func (c *Client) fetchPlayers(ctx context.Context) (map[string]string, error) {
	u := fmt.Sprintf("%s/servers/%s?include=player", c.baseURL, url.PathEscape(c.server))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "bmapi: build request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "bmapi: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.log.Debug("players unchanged (304)")
		return nil, errNotModified
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("bmapi: unexpected status %d", resp.StatusCode)
	}

	var br BMResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, errors.Wrap(err, "bmapi: decode")
	}

	// etag запоминаем только после успешного разбора
	if et := resp.Header.Get("ETag"); et != "" {
		c.mu.Lock()
		c.etag = et
		c.mu.Unlock()
	}

	// id->name текущие игроки сервера
	names := map[string]string{}
	for _, inc := range br.Included {
		if inc.Type == "player" {
			names[inc.ID] = inc.Attributes.Name
		}
	}
	c.log.Debug("players online", zap.Int("count", len(names)))

	c.mu.RLock()
	defer c.mu.RUnlock()
	curTracked := make(map[string]string)
	for id, realName := range names {
		if _, track := c.playersToDetect[id]; track {
			curTracked[id] = realName
		}
	}
	return curTracked, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
