package service

import "errors"

// 业务校验错误：同步返回给调用方处理，不自动重试。
// 台账/库存出现负数属于数据异常，不走这些错误，见 LedgerService 和 SpoolService 的钳位逻辑。
var (
	ErrProjectNotFound       = errors.New("项目不存在")
	ErrLineNotFound          = errors.New("该管线在MTO清单中不存在")
	ErrMIVNotFound           = errors.New("领料单不存在")
	ErrDuplicateMIVTag       = errors.New("该项目下领料单号已存在")
	ErrEmptyItemKey          = errors.New("物料键为空，料号和描述不能同时为空")
	ErrDuplicateItemKey      = errors.New("同一领料单内物料键重复")
	ErrItemNotInMTO          = errors.New("该物料不在此管线的MTO清单中")
	ErrQtyExceedsRemaining   = errors.New("领料量超过该物料的剩余需求量")
	ErrSpoolDrawExceedsTotal = errors.New("预制件领用量不能超过本行领料总量")
	ErrInsufficientSpool     = errors.New("预制件库存不足")
	ErrSpoolItemNotFound     = errors.New("预制件组件不存在")
	ErrNegativeQty           = errors.New("领料量必须为非负数")
	ErrCatalogEmpty          = errors.New("MTO清单为空或没有可识别的数据行")
)
