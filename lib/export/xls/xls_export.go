package xlsexport

import (
	"bytes"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	taskapimodels "adops-backend/models/api/task"
)

type Provider interface {
	ExportTaskList(list []taskapimodels.TaskView) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{}
}

type impl struct{}

var taskHeaders = []string{"Создана", "Операция", "Описание", "Закупка", "Статус", "Срок реакции", "Просрочена", "Решение", "Кем решено", "Итог"}

const exportDateLayout = "02.01.2006 15:04"

func (i impl) ExportTaskList(list []taskapimodels.TaskView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("ошибка закрытия файла")
		}
	}()
	sheet := "Sheet1"
	row := 0
	row, err := writeHeader(f, sheet, row, taskHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка формирования заголовка в xlsx")
	}
	if len(list) != 0 {
		row, err = writeTaskData(f, sheet, list, row)
		if err != nil {
			return nil, errors.Wrap(err, "ошибка формирования таблицы с данными в xlsx")
		}
	}
	f.SetSheetName(sheet, "Задачи")
	return f.WriteToBuffer()
}

func writeTaskData(f *excelize.File, sheet string, list []taskapimodels.TaskView, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(taskHeaders), len(list)+1); err != nil {
		return row, err
	}
	for _, item := range list {
		row++
		// "Создана"
		col := 1
		if err := writeColumn(f, sheet, col, row, item.CreatedAt.Format(exportDateLayout)); err != nil {
			return row, err
		}

		// "Операция"
		col++
		if err := writeColumn(f, sheet, col, row, string(item.ToolName)); err != nil {
			return row, err
		}

		// "Описание"
		col++
		if err := writeColumn(f, sheet, col, row, item.ActionDetail); err != nil {
			return row, err
		}

		// "Закупка"
		col++
		if err := writeColumn(f, sheet, col, row, item.MediaBuyID); err != nil {
			return row, err
		}

		// "Статус"
		col++
		if err := writeColumn(f, sheet, col, row, string(item.Status)); err != nil {
			return row, err
		}

		// "Срок реакции"
		col++
		if err := writeColumn(f, sheet, col, row, item.DueAt.Format(exportDateLayout)); err != nil {
			return row, err
		}

		// "Просрочена"
		col++
		overdue := ""
		if item.Overdue {
			overdue = "да"
		}
		if err := writeColumn(f, sheet, col, row, overdue); err != nil {
			return row, err
		}

		// "Решение"
		col++
		if err := writeColumn(f, sheet, col, row, string(item.Resolution)); err != nil {
			return row, err
		}

		// "Кем решено"
		col++
		if err := writeColumn(f, sheet, col, row, item.ResolvedBy); err != nil {
			return row, err
		}

		// "Итог"
		col++
		if err := writeColumn(f, sheet, col, row, item.ResolutionDetail); err != nil {
			return row, err
		}
	}
	return row, nil
}
