package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmarkov/finance_tracker/data/repository"
	"github.com/dmarkov/finance_tracker/internal/category"
	"github.com/dmarkov/finance_tracker/internal/converter/dbConverter"
	"github.com/dmarkov/finance_tracker/internal/model"
	"github.com/dmarkov/finance_tracker/internal/model/dbModel"
	"github.com/dmarkov/finance_tracker/utils"
)

// InsertPosition routes the position to the table matching its category's
// partition and returns the assigned id. An unknown category fails before
// anything is written; a name already present in the target table returns
// repository.ErrAlreadyExists.
func (s *Sqlite) InsertPosition(ctx context.Context, position model.Position) (positionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	partition, err := category.PartitionFor(position.Category)
	if err != nil {
		return 0, err
	}
	table := category.TableFor(partition)

	var existing int
	err = s.txOrDb(ctx).QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE name = ?`, table), position.Name).Scan(&existing)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, repository.ErrAlreadyExists
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, purchase_price, date_of_purchase, current_value, profit_loss, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`, table)

	slog.Debug("InsertPosition start", slog.String("rqID", rqID), slog.String("table", table))
	defer func() {
		if err != nil {
			slog.Error("InsertPosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPosition completed", slog.String("rqID", rqID), slog.Int64("positionID", positionID))
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	err = s.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		position.Name,
		position.PurchasePrice,
		position.DateOfPurchase,
		position.CurrentValue,
		position.ProfitLoss,
		position.Category,
		now,
		now,
	).Scan(&positionID)
	if err != nil {
		return 0, err
	}

	return positionID, nil
}

// GetPositionByID searches the three partition tables in order and returns the
// position with its lots attached.
func (s *Sqlite) GetPositionByID(ctx context.Context, positionID int64) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("GetPositionByID start", slog.String("rqID", rqID), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil {
			slog.Error("GetPositionByID failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositionByID completed", slog.String("rqID", rqID))
		}
	}()

	for _, partition := range category.Partitions() {
		table := category.TableFor(partition)
		query := fmt.Sprintf(`
			SELECT id, name, purchase_price, date_of_purchase, current_value, profit_loss, category, created_at, updated_at
			FROM %s
			WHERE id = ?`, table)

		dbPosition := dbModel.Position{}
		err = s.txOrDb(ctx).QueryRowxContext(ctx, query, positionID).StructScan(&dbPosition)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return model.Position{}, err
		}

		position = dbConverter.ConvertPosition(dbPosition)
		position.Lots, err = s.GetLotsForPosition(ctx, positionID, table)
		if err != nil {
			return model.Position{}, err
		}
		return position, nil
	}

	err = repository.ErrNotFound
	return model.Position{}, err
}

// UpdatePosition updates the scalar fields in place. The category (and with it
// the partition table) stays as stored.
func (s *Sqlite) UpdatePosition(ctx context.Context, position model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	partition, err := category.PartitionFor(position.Category)
	if err != nil {
		return err
	}
	table := category.TableFor(partition)

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = ?, purchase_price = ?, date_of_purchase = ?, current_value = ?, profit_loss = ?, updated_at = ?
		WHERE id = ?`, table)

	slog.Debug("UpdatePosition start", slog.String("rqID", rqID), slog.String("table", table))
	defer func() {
		if err != nil {
			slog.Error("UpdatePosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePosition completed", slog.String("rqID", rqID))
		}
	}()

	res, err := s.txOrDb(ctx).ExecContext(
		ctx,
		query,
		position.Name,
		position.PurchasePrice,
		position.DateOfPurchase,
		position.CurrentValue,
		position.ProfitLoss,
		time.Now().UTC().Format(time.RFC3339),
		position.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeletePosition removes the position and all its lots in one transaction.
func (s *Sqlite) DeletePosition(ctx context.Context, positionID int64) error {
	return s.WithinTransaction(ctx, func(ctx context.Context) error {
		rqID := utils.GetRequestIDFromCtx(ctx)

		slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.Int64("positionID", positionID))

		for _, partition := range category.Partitions() {
			table := category.TableFor(partition)

			res, err := s.txOrDb(ctx).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), positionID)
			if err != nil {
				slog.Error("DeletePosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
				return err
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				continue
			}

			_, err = s.txOrDb(ctx).ExecContext(ctx, `DELETE FROM purchases WHERE item_id = ? AND table_name = ?`, positionID, table)
			if err != nil {
				slog.Error("DeletePosition failed on purchases cascade", slog.String("rqID", rqID), slog.String("err", err.Error()))
				return err
			}

			slog.Debug("DeletePosition completed", slog.String("rqID", rqID), slog.String("table", table))
			return nil
		}

		return repository.ErrNotFound
	})
}

// InsertLot appends one purchase record for a position.
func (s *Sqlite) InsertLot(ctx context.Context, positionID int64, positionCategory string, lot model.Lot) (lotID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	partition, err := category.PartitionFor(positionCategory)
	if err != nil {
		return 0, err
	}
	table := category.TableFor(partition)

	query := `INSERT INTO purchases (item_id, table_name, date, amount, price) VALUES (?, ?, ?, ?, ?) RETURNING id`

	slog.Debug("InsertLot start", slog.String("rqID", rqID), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil {
			slog.Error("InsertLot failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertLot completed", slog.String("rqID", rqID), slog.Int64("lotID", lotID))
		}
	}()

	err = s.txOrDb(ctx).QueryRowContext(ctx, query, positionID, table, lot.Date, lot.Quantity, lot.UnitPrice).Scan(&lotID)
	if err != nil {
		return 0, err
	}

	return lotID, nil
}

// GetLotsForPosition returns the position's purchase history in insertion
// order.
func (s *Sqlite) GetLotsForPosition(ctx context.Context, positionID int64, table string) (lots []model.Lot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, item_id, table_name, date, amount, price
		FROM purchases
		WHERE item_id = ? AND table_name = ?
		ORDER BY id`

	slog.Debug("GetLotsForPosition start", slog.String("rqID", rqID), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil {
			slog.Error("GetLotsForPosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLotsForPosition completed", slog.String("rqID", rqID), slog.Int("lots", len(lots)))
		}
	}()

	rows, err := s.txOrDb(ctx).QueryxContext(ctx, query, positionID, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dbLot dbModel.Lot
		err = rows.StructScan(&dbLot)
		if err != nil {
			return nil, err
		}
		lots = append(lots, dbConverter.ConvertLot(dbLot))
	}

	return lots, rows.Err()
}

// GetPositionsByPartition returns all positions stored in one partition table,
// lots attached, ordered by name.
func (s *Sqlite) GetPositionsByPartition(ctx context.Context, partition category.Partition) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	table := category.TableFor(partition)
	query := fmt.Sprintf(`
		SELECT id, name, purchase_price, date_of_purchase, current_value, profit_loss, category, created_at, updated_at
		FROM %s
		ORDER BY name`, table)

	slog.Debug("GetPositionsByPartition start", slog.String("rqID", rqID), slog.String("table", table))
	defer func() {
		if err != nil {
			slog.Error("GetPositionsByPartition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositionsByPartition completed", slog.String("rqID", rqID), slog.Int("positions", len(positions)))
		}
	}()

	rows, err := s.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dbPositions []dbModel.Position
	for rows.Next() {
		var dbPosition dbModel.Position
		err = rows.StructScan(&dbPosition)
		if err != nil {
			return nil, err
		}
		dbPositions = append(dbPositions, dbPosition)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	lotsByItem, err := s.getLotsByTable(ctx, table)
	if err != nil {
		return nil, err
	}

	positions = make([]model.Position, 0, len(dbPositions))
	for _, dbPosition := range dbPositions {
		position := dbConverter.ConvertPosition(dbPosition)
		position.Lots = lotsByItem[position.ID]
		positions = append(positions, position)
	}

	return positions, nil
}

// GetAllPositions returns every stored position across the three partitions.
func (s *Sqlite) GetAllPositions(ctx context.Context) ([]model.Position, error) {
	var all []model.Position
	for _, partition := range category.Partitions() {
		positions, err := s.GetPositionsByPartition(ctx, partition)
		if err != nil {
			return nil, err
		}
		all = append(all, positions...)
	}
	return all, nil
}

// ClearAllPositions wipes every item and purchase record. Meant for the demo
// seeder and maintenance tooling, not for normal operation.
func (s *Sqlite) ClearAllPositions(ctx context.Context) (itemsDeleted int64, lotsDeleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Warn("ClearAllPositions: clearing ALL items", slog.String("rqID", rqID))

	err = s.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, partition := range category.Partitions() {
			table := category.TableFor(partition)
			res, err := s.txOrDb(ctx).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			itemsDeleted += affected
		}

		res, err := s.txOrDb(ctx).ExecContext(ctx, `DELETE FROM purchases`)
		if err != nil {
			return err
		}
		lotsDeleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		slog.Error("ClearAllPositions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return 0, 0, err
	}

	slog.Info("ClearAllPositions completed", slog.String("rqID", rqID), slog.Int64("items", itemsDeleted), slog.Int64("lots", lotsDeleted))

	return itemsDeleted, lotsDeleted, nil
}

func (s *Sqlite) getLotsByTable(ctx context.Context, table string) (map[int64][]model.Lot, error) {
	query := `
		SELECT id, item_id, table_name, date, amount, price
		FROM purchases
		WHERE table_name = ?
		ORDER BY id`

	rows, err := s.txOrDb(ctx).QueryxContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64][]model.Lot)
	for rows.Next() {
		var dbLot dbModel.Lot
		err = rows.StructScan(&dbLot)
		if err != nil {
			return nil, err
		}
		res[dbLot.ItemID] = append(res[dbLot.ItemID], dbConverter.ConvertLot(dbLot))
	}

	return res, rows.Err()
}
