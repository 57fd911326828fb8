package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, name, userName, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered. Use 'login' to sign in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	token, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.email = strings.ToLower(email)

	if err := saveToken(a.config.TokenFile, token); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(context.Context) error {
	a.client.SetToken("")
	a.email = ""
	if err := removeToken(a.config.TokenFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) List(ctx context.Context) error {
	tasks, err := a.client.ListTasks(ctx)
	if err != nil {
		return a.handleAuthError(err)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks yet")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintln(a.out, t)
	}
	return nil
}

// Add creates a task from text, prompting for it when empty.
func (a *App) Add(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		var err error
		text, err = GetSimpleText(a.reader, "Enter task text", a.out)
		if err != nil {
			return err
		}
	}

	t, err := a.client.CreateTask(ctx, text)
	if err != nil {
		return a.handleAuthError(err)
	}
	fmt.Fprintf(a.out, "Created %s\n", t.ID)
	return nil
}

func (a *App) Done(ctx context.Context, id string) error {
	t, err := a.client.CompleteTask(ctx, id)
	if err != nil {
		return a.handleAuthError(err)
	}
	fmt.Fprintln(a.out, t)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.client.DeleteTask(ctx, id); err != nil {
		return a.handleAuthError(err)
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

var _ execIface = (*App)(nil)
