package terminal

import (
	"os"
	"runtime"
	"strings"
)

// ShellKind selects the program a session runs.
type ShellKind string

const (
	ShellWSL        ShellKind = "wsl"
	ShellPowerShell ShellKind = "powershell"
	ShellCmd        ShellKind = "cmd"
)

// ParseShellKind maps a caller-supplied name to a ShellKind. Unrecognized
// names select the default kind.
func ParseShellKind(name string) ShellKind {
	switch ShellKind(strings.ToLower(strings.TrimSpace(name))) {
	case ShellPowerShell:
		return ShellPowerShell
	case ShellCmd:
		return ShellCmd
	default:
		return ShellWSL
	}
}

// launchSpec is the argv and working directory for a shell process.
type launchSpec struct {
	Path string
	Args []string
	Dir  string
}

// hostEnv is the slice of the host environment the launch rules depend on.
type hostEnv struct {
	goos         string
	defaultShell string // configured override for the default kind
	shellVar     string // $SHELL
	home         string
	userProfile  string // %USERPROFILE%
}

func currentHostEnv(defaultShell string) hostEnv {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return hostEnv{
		goos:         runtime.GOOS,
		defaultShell: defaultShell,
		shellVar:     os.Getenv("SHELL"),
		home:         home,
		userProfile:  os.Getenv("USERPROFILE"),
	}
}

func buildLaunch(env hostEnv, kind ShellKind, distro, cwd string) launchSpec {
	if env.goos == "windows" {
		return windowsLaunch(env, kind, distro, cwd)
	}
	return unixLaunch(env, kind, cwd)
}

func windowsLaunch(env hostEnv, kind ShellKind, distro, cwd string) launchSpec {
	profile := env.userProfile
	if profile == "" {
		profile = `C:\Users\Public`
	}
	dir := cwd
	if dir == "" {
		dir = profile
	}

	switch kind {
	case ShellPowerShell:
		return launchSpec{Path: "powershell.exe", Args: []string{"-NoLogo", "-NoExit"}, Dir: dir}
	case ShellCmd:
		return launchSpec{Path: "cmd.exe", Dir: dir}
	default:
		var args []string
		if distro != "" {
			args = append(args, "-d", distro)
		}
		// wsl.exe resolves the directory inside the distro, not on the host
		if cwd != "" {
			args = append(args, "--cd", cwd)
		} else {
			args = append(args, "--cd", "~")
		}
		return launchSpec{Path: "wsl.exe", Args: args}
	}
}

func unixLaunch(env hostEnv, kind ShellKind, cwd string) launchSpec {
	dir := cwd
	if dir == "" {
		dir = env.home
	}

	if kind == ShellPowerShell {
		return launchSpec{Path: "pwsh", Args: []string{"-NoLogo", "-NoExit"}, Dir: dir}
	}

	shell := env.defaultShell
	if shell == "" {
		shell = env.shellVar
	}
	if shell == "" {
		shell = "/bin/bash"
	}
	return launchSpec{Path: shell, Dir: dir}
}
