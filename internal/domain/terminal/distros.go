package terminal

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ListDistros returns the installed WSL distributions, excluding Docker
// Desktop's internal ones. Hosts without wsl.exe have none.
func ListDistros(ctx context.Context) ([]string, error) {
	path, err := exec.LookPath("wsl.exe")
	if err != nil {
		return []string{}, nil
	}

	out, err := exec.CommandContext(ctx, path, "--list", "--quiet").Output()
	if err != nil {
		return nil, fmt.Errorf("wsl --list failed: %w", err)
	}
	return parseDistroList(out), nil
}

// parseDistroList decodes wsl.exe output, which is UTF-16LE with or without
// a byte-order mark.
func parseDistroList(raw []byte) []string {
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
	if err != nil {
		decoded = raw
	}

	distros := []string{}
	for _, line := range strings.Split(string(decoded), "\n") {
		name := strings.TrimSpace(strings.ReplaceAll(line, "\x00", ""))
		if name == "" || strings.Contains(name, "docker-desktop") {
			continue
		}
		distros = append(distros, name)
	}
	return distros
}
