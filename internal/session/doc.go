// Package session keeps the TIDAL credential record on disk and decides whether it is usable.
//
// [Store] is a single JSON file holding one [models.Credentials] record. It is
// always replaced whole and written with 0600 permissions.
//
// [Manager] layers three modes on top of the store:
//   - strict ([Manager.Session]): used by data commands; fails with not authenticated,
//     session expired or a generic auth error
//   - check ([Manager.Check]): best-effort, reports a bool and never deletes the file
//   - interactive ([Manager.Interactive]): runs the device flow when there is no live session
//
// Only a definitive rejection from TIDAL (401/403 on the session check followed by
// a refused refresh) removes the file. Network failures leave it in place.
package session
