package client

import (
	"context"

	"go.uber.org/zap"
)

// AuthFlow runs the sign-in and sign-up forms and reports the outcome.
type AuthFlow struct {
	client   *Client
	notifier Notifier
	logger   *zap.Logger
}

func NewAuthFlow(c *Client, notifier Notifier) *AuthFlow {
	return &AuthFlow{client: c, notifier: notifier, logger: c.logger}
}

func (f *AuthFlow) SignIn(ctx context.Context, email, password string, remember bool) error {
	if err := f.client.SignIn(ctx, email, password, remember); err != nil {
		f.logger.Error("Sign in error", zap.String("email", email), zap.Error(err))
		f.notifier.Notify(Notification{
			Title:       "Sign in failed.",
			Description: MessageOf(err, "Invalid credentials. Please try again."),
			Severity:    SeverityError,
		})
		return err
	}
	f.notifier.Notify(Notification{
		Title:       "Sign in successful.",
		Description: "You have been successfully logged in!",
		Severity:    SeveritySuccess,
	})
	return nil
}

func (f *AuthFlow) SignUp(ctx context.Context, name, email, password string) error {
	if err := f.client.SignUp(ctx, name, email, password); err != nil {
		f.logger.Error("Signup error", zap.String("email", email), zap.Error(err))
		f.notifier.Notify(Notification{
			Title:       "Registration failed.",
			Description: MessageOf(err, "Something went wrong."),
			Severity:    SeverityError,
		})
		return err
	}
	f.notifier.Notify(Notification{
		Title:       "Account created.",
		Description: "Your account has been successfully created!",
		Severity:    SeveritySuccess,
	})
	return nil
}
