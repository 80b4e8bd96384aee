package gateway

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NotConfigured — sentinel для незанятых WAN-слотов (нет интерфейса с
// соответствующим комментарием или нет записи netwatch).
const NotConfigured = "NOT CONFIGURED"

// Фиксированный набор эндпойнтов для одного снапшота устройства.
// Потребители (dashboard) рассчитывают, что присутствует каждый ключ,
// поэтому агрегация строго all-or-nothing.
var snapshotEndpoints = []string{
	"system/resource",
	"system/identity",
	"system/clock",
	"interface",
	"tool/netwatch",
	"ip/address",
	"ip/arp",
}

// Snapshot — ответы всех эндпойнтов одного опроса, ключ — имя эндпойнта.
// Живёт один poll: наружу отдаётся как есть и не персистится.
type Snapshot map[string]json.RawMessage

// WANInfo — производные факты по одному WAN-линку.
type WANInfo struct {
	Address  string `json:"address"`
	Status   string `json:"status"`   // Connected | Disconnected | NOT CONFIGURED
	Internet string `json:"internet"` // Up | Down | NOT CONFIGURED
}

// FetchAll собирает снапшот: параллельные запросы ко всем эндпойнтам
// из фиксированного списка, мёрдж по имени. Падение любого запроса
// отменяет остальные и роняет агрегат целиком — частичных снапшотов нет.
func (c *Client) FetchAll(ctx context.Context, t Target) (Snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	snap := make(Snapshot, len(snapshotEndpoints))

	for _, ep := range snapshotEndpoints {
		ep := ep
		g.Go(func() error {
			raw, err := c.FetchEndpoint(ctx, t, ep)
			if err != nil {
				return err
			}
			mu.Lock()
			snap[ep] = raw
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ResolveWANAddress — адрес и состояние линка, помеченного комментарием label.
// Нет интерфейса с таким комментарием → триплет NOT CONFIGURED (не ошибка).
func (c *Client) ResolveWANAddress(ctx context.Context, t Target, label string) (WANInfo, error) {
	iface, err := c.FindInterfaceByComment(ctx, t, label)
	if err != nil {
		return WANInfo{}, err
	}
	if iface == nil {
		return WANInfo{Address: NotConfigured, Status: NotConfigured, Internet: NotConfigured}, nil
	}

	addrs, err := c.FetchAddresses(ctx, t, iface.Name)
	if err != nil {
		return WANInfo{}, err
	}

	info := WANInfo{Status: "Disconnected", Internet: "Down"}
	if len(addrs) > 0 {
		info.Address = addrs[0].Address
	} else {
		info.Address = "N/A"
	}
	if bool(iface.Running) && len(addrs) > 0 {
		info.Status = "Connected"
		info.Internet = "Up"
	}
	return info, nil
}

// ResolveNetwatch — label → сырой статус netwatch по совпадению комментария.
// Отсутствующие лейблы получают NOT CONFIGURED, исключений нет.
func (c *Client) ResolveNetwatch(ctx context.Context, t Target, labels []string) (map[string]string, error) {
	hosts, err := c.FetchNetwatch(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(labels))
	for _, label := range labels {
		out[label] = NotConfigured
		for _, h := range hosts {
			if h.Comment == label {
				out[label] = h.Status
				break
			}
		}
	}
	return out, nil
}

// NetwatchHosts отдаёт записи netwatch как есть (для passthrough-ручки).
func (c *Client) NetwatchHosts(ctx context.Context, t Target) ([]NetwatchHost, error) {
	return c.FetchNetwatch(ctx, t)
}

// Summary — витринные поля из снапшота для карточки устройства.
// Память приходит в байтах; делим на 1048576 и округляем до двух знаков
// ТОЛЬКО здесь: в сравнения и в журнал округлённые значения не попадают.
type Summary struct {
	Name    string  `json:"name"`
	Date    string  `json:"date"`
	Uptime  string  `json:"uptime"`
	Version string  `json:"osVersion"`
	CPULoad string  `json:"cpuLoad"`
	FreeMB  float64 `json:"freeMemory"`
	TotalMB float64 `json:"totalMemory"`
}

func (s Snapshot) Summary() Summary {
	var res struct {
		Uptime      string          `json:"uptime"`
		Version     string          `json:"version"`
		CPULoad     json.RawMessage `json:"cpu-load"`
		FreeMemory  json.RawMessage `json:"free-memory"`
		TotalMemory json.RawMessage `json:"total-memory"`
	}
	_ = json.Unmarshal(s["system/resource"], &res)

	var ident struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(s["system/identity"], &ident)

	var clock struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	_ = json.Unmarshal(s["system/clock"], &clock)

	return Summary{
		Name:    ident.Name,
		Date:    clock.Date + " " + clock.Time,
		Uptime:  res.Uptime,
		Version: res.Version,
		CPULoad: rawToString(res.CPULoad),
		FreeMB:  bytesToMB(res.FreeMemory),
		TotalMB: bytesToMB(res.TotalMemory),
	}
}

// bytesToMB принимает и число, и число-строкой (RouterOS отдаёт оба варианта).
func bytesToMB(raw json.RawMessage) float64 {
	f, err := strconv.ParseFloat(rawToString(raw), 64)
	if err != nil {
		return 0
	}
	return math.Round(f/1048576*100) / 100
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
