// Package session ties the statesync pieces into the flow a test
// harness actually runs.
//
// Usage:
//
//	sess, _ := session.New(session.Deps{
//	    Stream:     client,
//	    Downstream: onChange,
//	})
//	if err := sess.Start(ctx); err != nil {
//	    return err
//	}
//	defer sess.Stop(5 * time.Second)
//
//	if err := sess.WaitForInitialStates(0); err != nil {
//	    return err // names the units that never reported
//	}
//	// sess.InitialStates() holds the device's view at connection time;
//	// onChange now sees only genuine state changes.
package session
