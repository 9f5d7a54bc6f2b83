// Package rollout walks a synthesized document the way a provisioning engine
// would.
//
// Every resource is provisioned once the resources it depends on exist and
// the gates it waits for are ready. A gated resource is probed after it has
// been provisioned, with retries, until its predicate holds or the backoff
// gives up. A resource whose gate fails, or whose provisioning fails, blocks
// its dependents; resources that do not depend on it are still rolled out.
//
// The Result records the outcome of every resource and can be applied to a
// graph to update gate statuses for the next synthesis.
package rollout
