package bot

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/EgorLis/rustplus/internal/bmapi"
)

const minStrobeInterval = 100 * time.Millisecond

// сплит с поддержкой кавычек: msg="дом рейдят"
var reArg = regexp.MustCompile(`(\S*)"([^"]*)"|(\S+)`)

func (bot *RustPlusBot) HandleCommand(text string) error {
	fields := splitArgs(text)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])
	say := bot.say

	switch cmd {

	case "!help":
		say(strings.Join([]string{
			"!help",
			"!bt status",
			"!bt1 | !bt2 (toggle)",
			"!bt1 set <id> <name>",
			"!bt2 set <id> <name>",
			"!strobe <id> [interval_ms] | !strobe stop",
		}, "\n"))
		say(strings.Join([]string{
			"!alarm add <id> <name> [msg=\"...\"] [sound=1.mp3|none]",
			"!alarm del <id>",
			"!alarm list",
			"!track add <steamid> [name]",
			"!track del <steamid>",
			"!track list|info",
		}, "\n"))
		say(strings.Join([]string{
			"!death set <steamid> [sound=1.mp3|none]",
			"!death start [interval_sec]",
			"!death stop",
			"!death status",
			"!save",
		}, "\n"))
		return nil

	// ---------- BT ----------
	case "!bt":
		bot.mu.Lock()
		s1, s2 := bot.switchStatus(bot.bt1switch), bot.switchStatus(bot.bt2switch)
		bot.mu.Unlock()
		say(fmt.Sprintf("BT1: %s | BT2: %s", s1, s2))
		return nil

	case "!bt1", "!bt2":
		number := 1
		if cmd == "!bt2" {
			number = 2
		}
		if len(fields) == 1 {
			say(bot.turnSwitch(number))
			return nil
		}
		if strings.ToLower(fields[1]) != "set" || len(fields) < 4 {
			return errors.Errorf("usage: %s set <id> <name>", cmd)
		}
		id, err := parseUint32(fields[2])
		if err != nil {
			return err
		}
		name := fields[3]
		if err := bot.SetSwitch(number, id, name); err != nil {
			return err
		}
		if bot.cfg != nil {
			_ = bot.cfg.update(func(c *BotConfig) {
				sc := &SwitchConf{ID: id, Name: name}
				if number == 1 {
					c.BT1 = sc
				} else {
					c.BT2 = sc
				}
			})
		}
		say(fmt.Sprintf("BT%d set: %s(%d)", number, name, id))
		return nil

	case "!strobe":
		if len(fields) < 2 {
			return errors.New("usage: !strobe <id> [interval_ms] | !strobe stop")
		}
		if strings.ToLower(fields[1]) == "stop" {
			if !bot.stopStrobe() {
				say("strobe: not running")
				return nil
			}
			say("strobe stopped")
			return nil
		}
		id, err := parseUint32(fields[1])
		if err != nil {
			return err
		}
		interval := 500 * time.Millisecond
		if len(fields) >= 3 {
			ms, err := strconv.Atoi(fields[2])
			if err != nil {
				return errors.Wrap(err, "bad interval")
			}
			interval = time.Duration(ms) * time.Millisecond
		}
		if interval < minStrobeInterval {
			interval = minStrobeInterval
		}
		bot.startStrobe(id, interval)
		say(fmt.Sprintf("strobe %d every %s", id, interval))
		return nil

	// ---------- ALARMS ----------
	case "!alarm":
		if len(fields) < 2 {
			return errors.New("usage: !alarm add|del|list")
		}
		switch strings.ToLower(fields[1]) {
		case "list":
			say(bot.alarmList())
			return nil

		case "add":
			if len(fields) < 4 {
				return errors.New("usage: !alarm add <id> <name> [msg=\"...\"] [sound=1.mp3|none]")
			}
			id, err := parseUint32(fields[2])
			if err != nil {
				return err
			}
			name := fields[3]
			kv := parseKV(fields[4:]) // msg=..., sound=...
			msg, sound := kv["msg"], kv["sound"]

			bot.SetAlarm(id, name, msg, bot.callbackForSound(sound))
			if bot.cfg != nil {
				_ = bot.cfg.update(func(c *BotConfig) {
					c.Alarms[id] = AlarmConf{ID: id, Name: name, Msg: msg, Sound: sound}
				})
			}
			say(fmt.Sprintf("alarm added: %s(%d)", name, id))
			return nil

		case "del":
			if len(fields) < 3 {
				return errors.New("usage: !alarm del <id>")
			}
			id, err := parseUint32(fields[2])
			if err != nil {
				return err
			}
			bot.RemoveAlarm(id)
			if bot.cfg != nil {
				_ = bot.cfg.update(func(c *BotConfig) { delete(c.Alarms, id) })
			}
			say(fmt.Sprintf("alarm deleted: %d", id))
			return nil

		default:
			return errors.New("usage: !alarm add|del|list")
		}

	// ---------- TRACK (BattleMetrics) ----------
	case "!track":
		if bot.bm == nil {
			return errors.New("BM not connected")
		}
		if len(fields) < 2 {
			return errors.New("usage: !track add|del|list|info")
		}
		switch strings.ToLower(fields[1]) {
		case "list":
			tracked := bot.bm.Tracked()
			if len(tracked) == 0 {
				say("tracked: (empty)")
				return nil
			}
			ids := make([]string, 0, len(tracked))
			for id := range tracked {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			rows := make([]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, fmt.Sprintf("%s (%s)", tracked[id], id))
			}
			say("tracked:\n" + strings.Join(rows, "\n"))
			return nil

		case "info":
			if len(bot.bm.Tracked()) == 0 {
				say("tracked: (empty)")
				return nil
			}
			say(bot.bm.FormatOnlineInfo(bot.bm.IsOnline()))
			return nil

		case "add":
			if len(fields) < 3 {
				return errors.New("usage: !track add <steamid> [name]")
			}
			steam := fields[2]
			name := ""
			if len(fields) >= 4 {
				name = fields[3]
			}
			bot.bm.AddPlayer(bmapi.Player{ID: steam, Name: name})
			if bot.cfg != nil {
				_ = bot.cfg.update(func(c *BotConfig) {
					for i := range c.Players {
						if c.Players[i].ID == steam {
							c.Players[i].Name = name
							return
						}
					}
					c.Players = append(c.Players, PlayerConf{ID: steam, Name: name})
				})
			}
			say(fmt.Sprintf("track added: %s (%s)", name, steam))
			return nil

		case "del":
			if len(fields) < 3 {
				return errors.New("usage: !track del <steamid>")
			}
			steam := fields[2]
			bot.bm.RemovePlayer(steam)
			if bot.cfg != nil {
				_ = bot.cfg.update(func(c *BotConfig) {
					out := c.Players[:0]
					for _, p := range c.Players {
						if p.ID != steam {
							out = append(out, p)
						}
					}
					c.Players = out
				})
			}
			say(fmt.Sprintf("track deleted: %s", steam))
			return nil

		default:
			return errors.New("usage: !track add|del|list|info")
		}

	// ---------- DEATH ----------
	case "!death":
		if len(fields) < 2 {
			return errors.New("usage: !death set|start|stop|status")
		}
		switch strings.ToLower(fields[1]) {
		case "set":
			if len(fields) < 3 {
				return errors.New("usage: !death set <steamid> [sound=1.mp3|none]")
			}
			steamID, err := strconv.ParseUint(fields[2], 10, 64)
			if err != nil {
				return errors.Wrap(err, "bad steamid")
			}
			var sound *string
			if len(fields) >= 4 {
				s := strings.TrimSpace(parseKV(fields[3:])["sound"])
				sound = &s
			}
			bot.SetCheckPlayerDeath(steamID, sound)
			say(fmt.Sprintf("death-watch target set: %d", steamID))
			return nil

		case "start":
			sec := 15
			if len(fields) >= 3 {
				if v, err := strconv.Atoi(fields[2]); err == nil && v > 0 {
					sec = v
				}
			}
			if err := bot.StartDeathWatch(time.Duration(sec) * time.Second); err != nil {
				return err
			}
			say(fmt.Sprintf("death-watch started (%ds)", sec))
			return nil

		case "stop":
			bot.StopDeathWatch()
			say("death-watch stopped")
			return nil

		case "status":
			if running, every := bot.deathWatchStatus(); running {
				say(fmt.Sprintf("death-watch: running (every %s)", every))
			} else {
				say("death-watch: stopped")
			}
			return nil

		default:
			return errors.New("usage: !death set|start|stop|status")
		}

	// ---------- SAVE ----------
	case "!save":
		if bot.cfg == nil {
			return errors.New("config not enabled")
		}
		if err := bot.cfg.Save(); err != nil {
			return err
		}
		say("config saved")
		return nil

	default:
		return errors.New("unknown command. try !help")
	}
}

func (bot *RustPlusBot) alarmList() string {
	bot.mu.Lock()
	ids := make([]uint32, 0, len(bot.alarms))
	alarms := make(map[uint32]smartAlarm, len(bot.alarms))
	for id, a := range bot.alarms {
		ids = append(ids, id)
		alarms[id] = a
	}
	bot.mu.Unlock()
	if len(ids) == 0 {
		return "alarms: (empty)"
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var conf map[uint32]AlarmConf
	if bot.cfg != nil {
		conf = bot.cfg.snapshot().Alarms
	}
	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		// звук известен только из конфига
		sound := "unknown"
		if ac, ok := conf[id]; ok {
			sound = ac.Sound
			if sound == "" {
				sound = "none"
			}
		}
		a := alarms[id]
		rows = append(rows, fmt.Sprintf("%s(%d) msg=%q sound=%q", a.name, id, a.msg, sound))
	}
	return "alarms:\n" + strings.Join(rows, "\n")
}

func (bot *RustPlusBot) startStrobe(id uint32, interval time.Duration) {
	bot.stopStrobe()
	parent := bot.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	bot.mu.Lock()
	bot.strobe = &strobeState{id: id, cancel: cancel}
	bot.mu.Unlock()
	bot.rpc.Strobe(ctx, id, interval, true)
}

func (bot *RustPlusBot) stopStrobe() bool {
	bot.mu.Lock()
	s := bot.strobe
	bot.strobe = nil
	bot.mu.Unlock()
	if s == nil {
		return false
	}
	s.cancel()
	return true
}

func parseUint32(s string) (uint32, error) {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("bad id %q", s)
	}
	return uint32(u), nil
}

// splitArgs режет строку по пробелам; "..." - одно поле, key="..." тоже.
func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[3] != "" {
			out = append(out, m[3])
		} else {
			out = append(out, m[1]+m[2])
		}
	}
	return out
}

func parseKV(args []string) map[string]string {
	res := map[string]string{}
	for _, a := range args {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) == 2 {
			res[strings.ToLower(kv[0])] = kv[1]
		}
	}
	return res
}
