// Package terminal hosts interactive shell sessions on pseudo-terminals.
//
// A Manager owns a Registry of live sessions keyed by caller-supplied id.
// Each session runs one shell process on its own pty and keeps the most
// recent output in a bounded Buffer so a UI can re-attach after a detach.
//
// Architecture:
//   - Spawn allocates the pty, starts the shell and registers the session
//   - One reader goroutine per session does blocking 4 KiB reads from the
//     pty master and hands chunks to a publisher goroutine over a channel
//   - The publisher broadcasts each chunk as an output event, then appends
//     it to the session buffer, so listeners see chunks in read order
//   - The registry lock only covers map access; pty I/O happens after the
//     session handle has been looked up and the lock released
//
// Missing ids are not errors: Write, Resize and Kill on an unknown id do
// nothing, and ReadBuffer returns an empty slice.
//
// Shell kinds:
//   - wsl (default): wsl.exe [-d distro] --cd <cwd|~> on Windows, the login
//     shell elsewhere
//   - powershell: powershell.exe -NoLogo -NoExit (pwsh off Windows)
//   - cmd: cmd.exe on Windows, the default shell elsewhere
package terminal
