// Package envmap provides the shared configuration map that is threaded
// through stack construction.
//
// A Map is an insertion-ordered set of string keys and values. Any holder of a
// *Map may write any key; the last write to a key wins and keeps the key's
// original position. Once construction is complete, the map is frozen into a
// Snapshot which is handed to the synthesizer.
//
// Components that contribute configuration should not share a single Map.
// Instead, each component writes into its own Namespace, and the namespaces are
// combined once with Merge. Merge fails if two namespaces write the same key,
// which turns an accidental overwrite into an error that names both writers:
//
//	appconfig := envmap.NewNamespace("appconfig", "NMOS_TEST_")
//	appconfig.Set("APPLICATION", "nmos-test") // NMOS_TEST_APPLICATION
//
//	m, err := envmap.Merge(appconfig, containers)
//	if err != nil {
//		// *CollisionError
//	}
//	snap := m.Snapshot()
//
// No locking is done. Construction is expected to be sequential.
package envmap
