package rules

import (
	"strings"

	m "github.com/tempo-ml/tempo/internal/model"
)

// SubKind labels for the distributed-parallel family.
const (
	SubKindDDPWrap          = "ddp_wrap"
	SubKindProcessGroupInit = "process_group_init"
	SubKindStrategySetting  = "strategy_setting"
)

func distributedCallRules() []CallRule {
	return []CallRule{
		{Target: "torch.nn.parallel.DistributedDataParallel", Category: m.CategoryDistributed, SubKind: SubKindDDPWrap},
		{Target: "torch.nn.parallel.distributed.DistributedDataParallel", Category: m.CategoryDistributed, SubKind: SubKindDDPWrap},
		{Target: "torch.distributed.init_process_group", Category: m.CategoryDistributed, SubKind: SubKindProcessGroupInit},
	}
}

// strategyKeywordRule matches `strategy=...` keyword settings. The value
// decides the category: plain data parallelism is distributed, fully sharded
// or ZeRO strategies are sharding.
func strategyKeywordRule() KeywordRule {
	return KeywordRule{
		Name: "strategy",
		Classify: func(value string) (m.Category, string, bool) {
			return ClassifyStrategyValue(value)
		},
	}
}

// ClassifyStrategyValue maps a strategy name to its technique category.
func ClassifyStrategyValue(value string) (m.Category, string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))

	switch {
	case strings.Contains(value, "fsdp"),
		strings.Contains(value, "deepspeed"),
		strings.Contains(value, "zero"):
		return m.CategorySharding, SubKindStrategySetting, true
	case strings.HasPrefix(value, "ddp"),
		strings.Contains(value, "horovod"):
		return m.CategoryDistributed, SubKindStrategySetting, true
	}

	return "", "", false
}

func distributedTextRules() []TextRule {
	return []TextRule{
		{Needle: "DistributedDataParallel(", Category: m.CategoryDistributed, SubKind: SubKindDDPWrap},
		{Needle: "init_process_group(", Category: m.CategoryDistributed, SubKind: SubKindProcessGroupInit},
	}
}
