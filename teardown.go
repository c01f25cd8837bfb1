package tempmongo

import "context"

// KillAndClean stops the managed container and then removes it together with
// its anonymous volumes, fully erasing the server's state. It requires a
// bound container identity; a stop failure short-circuits before removal. A
// second call after a successful teardown surfaces the engine's not-found
// error.
func (t *TempMongo) KillAndClean(ctx context.Context) error {
	if t.containerID == "" {
		return ErrIdentityNotSet
	}
	if err := t.engine.StopContainer(ctx, t.containerID); err != nil {
		return err
	}
	if err := t.engine.RemoveContainer(ctx, t.containerID); err != nil {
		return err
	}
	t.state = stateTornDown
	return nil
}

// KillNotClean stops the managed container but leaves it and its volume
// state in place for later inspection or restart. It requires a bound
// container identity.
func (t *TempMongo) KillNotClean(ctx context.Context) error {
	if t.containerID == "" {
		return ErrIdentityNotSet
	}
	if err := t.engine.StopContainer(ctx, t.containerID); err != nil {
		return err
	}
	t.state = stateTornDown
	return nil
}
