// Package model defines the database models for the lock service.
//
// The schema is small:
//
//   - items: lockable resources, each classified by an ItemType
//   - users, groups, user_groups: principals and their group memberships
//   - permissions, user_permissions, group_permissions: capability grants
//   - group_type_visibilities: which groups may observe which item types
//   - item_locks: lock rows, flipped to locked=false on release, never deleted
package model
