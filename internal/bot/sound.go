package bot

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// PlaySoundFile открывает файл ассоциированной программой ОС и не ждёт её.
func PlaySoundFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// коллбэк из строки sound; "" и "none" - без звука
func (bot *RustPlusBot) callbackForSound(sound string) func() {
	s := strings.TrimSpace(sound)
	if s == "" || strings.EqualFold(s, "none") {
		return nil
	}
	path := filepath.Join(bot.soundDir, filepath.Base(s))
	play := bot.playSound

	return func() {
		if err := play(path); err != nil {
			bot.log.Warn("sound open error", zap.String("path", path), zap.Error(err))
		}
	}
}
