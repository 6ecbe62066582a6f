/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sync

import (
	"fmt"

	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

// bumpLastMaxUSN advances the recorded last max usn after an upload. If the
// response usn is not contiguous with the recorded one, another client has
// written to the server in the meantime and this client is behind.
func bumpLastMaxUSN(tx *database.DB, respUSN int) (bool, error) {
	lastMaxUSN, err := getLastMaxUSN(tx)
	if err != nil {
		return false, errors.Wrap(err, "getting last max usn")
	}

	log.Debug("response USN %d. last max usn: %d\n", respUSN, lastMaxUSN)

	if respUSN == lastMaxUSN+1 {
		if err := updateLastMaxUSN(tx, lastMaxUSN+1); err != nil {
			return false, errors.Wrap(err, "updating last max usn")
		}

		return false, nil
	}

	return true, nil
}

func sendFolders(ctx context.LeafCtx, tx *database.DB) (bool, error) {
	isBehind := false

	rows, err := tx.Query("SELECT uuid, name, usn, last_page_added_on, deleted FROM folders WHERE dirty")
	if err != nil {
		return isBehind, errors.Wrap(err, "getting syncable folders")
	}
	defer rows.Close()

	for rows.Next() {
		var folder database.Folder

		if err = rows.Scan(&folder.UUID, &folder.Name, &folder.USN, &folder.LastPageAddedOn, &folder.Deleted); err != nil {
			return isBehind, errors.Wrap(err, "scanning a syncable folder")
		}

		log.Debug("sending folder %s\n", folder.UUID)

		var respUSN int

		// if new, create it in the server, or else, update.
		if folder.USN == 0 {
			if folder.Deleted {
				if err := folder.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging a folder locally")
				}

				continue
			}

			resp, err := client.CreateFolder(ctx, folder.Name)
			if err != nil {
				log.Debug("error creating folder (will retry after stepSync): %v\n", err)
				isBehind = true
				continue
			}

			folder.Dirty = false
			folder.USN = resp.Folder.USN
			if err := folder.Update(tx); err != nil {
				return isBehind, errors.Wrap(err, "marking folder clean")
			}

			if err := folder.UpdateUUID(tx, resp.Folder.UUID); err != nil {
				return isBehind, errors.Wrap(err, "updating folder uuid")
			}

			respUSN = resp.Folder.USN
		} else {
			if folder.Deleted {
				resp, err := client.DeleteFolder(ctx, folder.UUID)
				if err != nil {
					return isBehind, errors.Wrap(err, "deleting a folder")
				}

				if err := folder.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging a folder locally")
				}

				respUSN = resp.Folder.USN
			} else {
				resp, err := client.UpdateFolder(ctx, folder.UUID, &folder.Name, nil, nil, &folder.LastPageAddedOn)
				if err != nil {
					return isBehind, errors.Wrap(err, "updating a folder")
				}

				folder.Dirty = false
				folder.USN = resp.Folder.USN
				if err := folder.Update(tx); err != nil {
					return isBehind, errors.Wrap(err, "marking folder clean")
				}

				respUSN = resp.Folder.USN
			}
		}

		behind, err := bumpLastMaxUSN(tx, respUSN)
		if err != nil {
			return isBehind, err
		}
		if behind {
			isBehind = true
		}
	}

	return isBehind, nil
}

func sendPages(ctx context.LeafCtx, tx *database.DB) (bool, error) {
	isBehind := false

	warnDanglingAlarms(tx)

	rows, err := tx.Query("SELECT uuid, folder_uuid, title, body, kind, public, deleted, usn, added_on FROM pages WHERE dirty")
	if err != nil {
		return isBehind, errors.Wrap(err, "getting syncable pages")
	}
	defer rows.Close()

	for rows.Next() {
		var page database.Page

		if err = rows.Scan(&page.UUID, &page.FolderUUID, &page.Title, &page.Body, &page.Kind,
			&page.Public, &page.Deleted, &page.USN, &page.AddedOn); err != nil {
			return isBehind, errors.Wrap(err, "scanning a syncable page")
		}

		log.Debug("sending page %s\n", page.UUID)

		var respUSN int

		// if new, create it in the server, or else, update.
		if page.USN == 0 {
			if page.Deleted {
				// if a page was added and deleted locally, simply expunge
				if err := page.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging a page locally")
				}

				continue
			}

			var folderUUID *string
			if page.FolderUUID.Valid {
				folderUUID = &page.FolderUUID.String
			}

			resp, err := client.CreatePage(ctx, client.CreatePagePayload{
				UUID:       page.UUID,
				FolderUUID: folderUUID,
				Title:      page.Title,
				Body:       page.Body,
				Kind:       page.Kind,
			})
			if err != nil {
				log.Debug("failed to create page %s: %v\n", page.UUID, err)
				isBehind = true
				continue
			}

			page.Dirty = false
			page.USN = resp.Result.USN
			if err := page.Update(tx); err != nil {
				return isBehind, errors.Wrap(err, "marking page clean")
			}

			if err := page.UpdateUUID(tx, resp.Result.UUID); err != nil {
				return isBehind, errors.Wrap(err, "updating page uuid")
			}

			respUSN = resp.Result.USN
		} else {
			if page.Deleted {
				resp, err := client.DeletePage(ctx, page.UUID)
				if err != nil {
					return isBehind, errors.Wrap(err, "deleting a page")
				}

				if err := page.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging a page locally")
				}

				respUSN = resp.Result.USN
			} else {
				var folderUUID *string
				if page.FolderUUID.Valid {
					folderUUID = &page.FolderUUID.String
				}

				resp, err := client.UpdatePage(ctx, page.UUID, client.UpdatePagePayload{
					FolderUUID: folderUUID,
					Title:      &page.Title,
					Body:       &page.Body,
					Kind:       &page.Kind,
					Public:     &page.Public,
				})
				if err != nil {
					return isBehind, errors.Wrap(err, "updating a page")
				}

				page.Dirty = false
				page.USN = resp.Result.USN
				if err := page.Update(tx); err != nil {
					return isBehind, errors.Wrap(err, "marking page clean")
				}

				respUSN = resp.Result.USN
			}
		}

		behind, err := bumpLastMaxUSN(tx, respUSN)
		if err != nil {
			return isBehind, err
		}
		if behind {
			isBehind = true
		}
	}

	return isBehind, nil
}

func sendAlarms(ctx context.LeafCtx, tx *database.DB) (bool, error) {
	isBehind := false

	rows, err := tx.Query("SELECT uuid, page_uuid, next_trigger_at, deleted, usn, added_on FROM alarms WHERE dirty")
	if err != nil {
		return isBehind, errors.Wrap(err, "getting syncable alarms")
	}
	defer rows.Close()

	for rows.Next() {
		var alarm database.Alarm

		if err = rows.Scan(&alarm.UUID, &alarm.PageUUID, &alarm.NextTriggerAt, &alarm.Deleted, &alarm.USN, &alarm.AddedOn); err != nil {
			return isBehind, errors.Wrap(err, "scanning a syncable alarm")
		}

		log.Debug("sending alarm %s (page: %s)\n", alarm.UUID, alarm.PageUUID)

		var nextTriggerAt *int64
		if alarm.NextTriggerAt.Valid {
			nextTriggerAt = &alarm.NextTriggerAt.Int64
		}

		var respUSN int

		// if new, create it in the server, or else, update.
		if alarm.USN == 0 {
			if alarm.Deleted {
				if err := alarm.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging an alarm locally")
				}

				continue
			}

			resp, err := client.CreateAlarm(ctx, client.CreateAlarmPayload{
				PageUUID:      alarm.PageUUID,
				NextTriggerAt: nextTriggerAt,
			})
			if err != nil {
				log.Debug("failed to create alarm %s (page: %s): %v\n", alarm.UUID, alarm.PageUUID, err)
				isBehind = true
				continue
			}

			alarm.Dirty = false
			alarm.USN = resp.Result.USN
			if err := alarm.Update(tx); err != nil {
				return isBehind, errors.Wrap(err, "marking alarm clean")
			}

			if err := alarm.UpdateUUID(tx, resp.Result.UUID); err != nil {
				return isBehind, errors.Wrap(err, "updating alarm uuid")
			}

			respUSN = resp.Result.USN
		} else {
			if alarm.Deleted {
				resp, err := client.DeleteAlarm(ctx, alarm.UUID)
				if err != nil {
					return isBehind, errors.Wrap(err, "deleting an alarm")
				}

				if err := alarm.Expunge(tx); err != nil {
					return isBehind, errors.Wrap(err, "expunging an alarm locally")
				}

				respUSN = resp.Result.USN
			} else {
				resp, err := client.UpdateAlarm(ctx, alarm.UUID, client.UpdateAlarmPayload{
					PageUUID:      &alarm.PageUUID,
					NextTriggerAt: nextTriggerAt,
				})
				if err != nil {
					return isBehind, errors.Wrap(err, "updating an alarm")
				}

				alarm.Dirty = false
				alarm.USN = resp.Result.USN
				if err := alarm.Update(tx); err != nil {
					return isBehind, errors.Wrap(err, "marking alarm clean")
				}

				respUSN = resp.Result.USN
			}
		}

		behind, err := bumpLastMaxUSN(tx, respUSN)
		if err != nil {
			return isBehind, err
		}
		if behind {
			isBehind = true
		}
	}

	return isBehind, nil
}

func sendChanges(ctx context.LeafCtx, tx *database.DB) (bool, error) {
	log.Info("sending changes.")

	var delta int
	if err := tx.QueryRow(`SELECT (SELECT count(*) FROM pages WHERE dirty)
		+ (SELECT count(*) FROM folders WHERE dirty)
		+ (SELECT count(*) FROM alarms WHERE dirty)`).Scan(&delta); err != nil {
		return false, errors.Wrap(err, "counting dirty resources")
	}

	fmt.Printf(" (total %d).", delta)

	log.DebugNewline()

	behind1, err := sendFolders(ctx, tx)
	if err != nil {
		return behind1, errors.Wrap(err, "sending folders")
	}

	behind2, err := sendPages(ctx, tx)
	if err != nil {
		return behind2, errors.Wrap(err, "sending pages")
	}

	behind3, err := sendAlarms(ctx, tx)
	if err != nil {
		return behind3, errors.Wrap(err, "sending alarms")
	}

	fmt.Println(" done.")

	isBehind := behind1 || behind2 || behind3

	return isBehind, nil
}

// findDanglingAlarms returns alarms whose page does not exist locally or is deleted
func findDanglingAlarms(db *database.DB) ([]struct{ alarmUUID, pageUUID string }, error) {
	rows, err := db.Query(`
		SELECT a.uuid, a.page_uuid
		FROM alarms a
		WHERE NOT a.deleted
		AND NOT EXISTS (
			SELECT 1 FROM pages p
			WHERE p.uuid = a.page_uuid
			AND NOT p.deleted
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dangling []struct{ alarmUUID, pageUUID string }
	for rows.Next() {
		var alarmUUID, pageUUID string
		if err := rows.Scan(&alarmUUID, &pageUUID); err != nil {
			continue
		}
		dangling = append(dangling, struct{ alarmUUID, pageUUID string }{alarmUUID, pageUUID})
	}

	return dangling, nil
}

func warnDanglingAlarms(tx *database.DB) {
	dangling, err := findDanglingAlarms(tx)
	if err != nil {
		log.Debug("error checking dangling alarms: %v\n", err)
		return
	}

	if len(dangling) == 0 {
		return
	}

	log.Debug("Found %d dangling alarms (page doesn't exist locally):\n", len(dangling))
	for _, d := range dangling {
		log.Debug("alarm %s (page %s)\n", d.alarmUUID, d.pageUUID)
	}
}

// checkPostSyncIntegrity checks for data integrity issues after sync and warns the user
func checkPostSyncIntegrity(db *database.DB) {
	dangling, err := findDanglingAlarms(db)
	if err != nil {
		log.Debug("error checking dangling alarms: %v\n", err)
		return
	}

	if len(dangling) == 0 {
		return
	}

	log.Warnf("Found %d reminders referencing non-existent or deleted pages:\n", len(dangling))
	for _, d := range dangling {
		log.Plainf("  - reminder %s (missing page: %s)\n", d.alarmUUID, d.pageUUID)
	}
}
