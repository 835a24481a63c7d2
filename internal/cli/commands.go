package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/meng-clb/paste/internal/models"
)

// snapshotWait bounds how long read commands wait for the first
// subscription snapshot before printing what they have.
const snapshotWait = 3 * time.Second

// PrintUsage выводит справку по командам
func PrintUsage() {
	fmt.Println(`Usage: clipsync <command> [arguments]

Commands:
  login [token]    sign in with a bearer token (prompts when omitted)
  logout           sign out and clear the stored session
  status           show identity, device id and connected device count
  submit [text]    submit a clip (reads stdin when text is omitted)
  latest           print the most recent clip
  history          print the recent-clip window
  watch            follow the history window until interrupted
  delete <id>      delete one clip
  clear            delete every clip of the signed-in account`)
}

// RunLogin устанавливает сессию из bearer-токена
func RunLogin(ctx context.Context, app *App, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		read, err := readToken()
		if err != nil {
			return err
		}
		token = read
	}

	identity, err := app.Auth.SignIn(ctx, strings.TrimSpace(token))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Signed in as %s", identity.UID)
	if identity.Email != "" {
		fmt.Printf(" (%s)", identity.Email)
	}
	fmt.Println()
	return nil
}

// readToken читает токен с терминала без эха, либо со stdin
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Token: ")
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(data), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return line, nil
}

// RunLogout сбрасывает сессию
func RunLogout(ctx context.Context, app *App) error {
	if err := app.Auth.SignOut(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println("Signed out")
	return nil
}

// RunStatus показывает identity, device id и счётчик устройств
func RunStatus(ctx context.Context, app *App) error {
	identity := app.Auth.Current()
	if identity == nil {
		fmt.Println("Status: signed out")
		fmt.Printf("Device: %s\n", app.DeviceID())
		return nil
	}

	// даём presence-подписке шанс доставить первый снимок
	select {
	case <-app.Tracker.Updates():
	case <-time.After(snapshotWait):
	case <-ctx.Done():
	}

	fmt.Printf("Status: signed in as %s", identity.UID)
	if identity.Email != "" {
		fmt.Printf(" (%s)", identity.Email)
	}
	fmt.Println()
	fmt.Printf("Device: %s\n", app.DeviceID())
	fmt.Printf("Connected devices: %d\n", app.Tracker.Count())
	return nil
}

// RunSubmit отправляет клип
func RunSubmit(ctx context.Context, app *App, args []string) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	if err := app.Engine.Submit(ctx, text); err != nil {
		return err
	}
	fmt.Println("Clip submitted")
	return nil
}

// RunLatest печатает последний клип
func RunLatest(ctx context.Context, app *App) error {
	// ждём, пока подписка latest доставит первый непустой снимок
	wait := time.After(snapshotWait)
loop:
	for app.Engine.Latest() == nil {
		select {
		case <-app.Engine.Updates():
		case <-wait:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	latest := app.Engine.Latest()
	if latest == nil {
		fmt.Println("No clips yet")
		return nil
	}
	printClip(*latest)
	return nil
}

// RunHistory печатает окно истории
func RunHistory(ctx context.Context, app *App) error {
	app.Engine.StartHistory(ctx)
	defer app.Engine.StopHistory()

	wait := time.After(snapshotWait)
loop:
	for len(app.Engine.History()) == 0 {
		select {
		case <-app.Engine.Updates():
		case <-wait:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	history := app.Engine.History()
	if len(history) == 0 {
		fmt.Println("History is empty")
		return nil
	}
	for _, clip := range history {
		printClip(clip)
	}
	return nil
}

// RunWatch следит за окном истории до прерывания
func RunWatch(ctx context.Context, app *App) error {
	app.Engine.StartHistory(ctx)
	defer app.Engine.StopHistory()

	fmt.Println("Watching clips, press Ctrl+C to stop")
	for {
		select {
		case <-app.Engine.Updates():
			history := app.Engine.History()
			fmt.Printf("--- %d clip(s) ---\n", len(history))
			for _, clip := range history {
				printClip(clip)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// RunDelete удаляет один клип
func RunDelete(ctx context.Context, app *App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clipsync delete <id>")
	}

	if err := app.Engine.DeleteOne(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Clip deleted")
	return nil
}

// RunClear удаляет все клипы аккаунта
func RunClear(ctx context.Context, app *App) error {
	if err := app.Engine.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Println("History cleared")
	return nil
}

// printClip выводит клип в одну-две строки
func printClip(clip models.Clip) {
	ts := "pending"
	if clip.CreatedAt != nil {
		ts = clip.CreatedAt.Format(time.RFC3339)
	}
	content := clip.Content
	if runes := []rune(content); len(runes) > 80 {
		content = string(runes[:77]) + "..."
	}
	fmt.Printf("%s  %s  [%s]  %s\n", clip.ID, ts, clip.DeviceLabel, content)
}
