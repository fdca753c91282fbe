package rules

import (
	m "github.com/tempo-ml/tempo/internal/model"
)

// SubKind labels for the sharding family.
const (
	SubKindFSDPWrap       = "fsdp_wrap"
	SubKindZeroOptimizer  = "zero_redundancy_optimizer"
	SubKindDeepspeedInit  = "deepspeed_init"
	SubKindZeroConfig     = "deepspeed_zero_config"
	SubKindDSFloat16Conf  = "deepspeed_fp16_config"
	SubKindDSBFloat16Conf = "deepspeed_bf16_config"
)

func shardingCallRules() []CallRule {
	return []CallRule{
		{Target: "torch.distributed.fsdp.FullyShardedDataParallel", Category: m.CategorySharding, SubKind: SubKindFSDPWrap},
		{Target: "torch.distributed.fsdp.fully_shard", Category: m.CategorySharding, SubKind: SubKindFSDPWrap},
		{Target: "fairscale.nn.FullyShardedDataParallel", Category: m.CategorySharding, SubKind: SubKindFSDPWrap},
		{Target: "torch.distributed.optim.ZeroRedundancyOptimizer", Category: m.CategorySharding, SubKind: SubKindZeroOptimizer},
		{Target: "deepspeed.initialize", Category: m.CategorySharding, SubKind: SubKindDeepspeedInit},
	}
}

func shardingTextRules() []TextRule {
	return []TextRule{
		{Needle: "FullyShardedDataParallel(", Category: m.CategorySharding, SubKind: SubKindFSDPWrap},
		{Needle: "ZeroRedundancyOptimizer(", Category: m.CategorySharding, SubKind: SubKindZeroOptimizer},
		{Needle: "deepspeed.initialize(", Category: m.CategorySharding, SubKind: SubKindDeepspeedInit},
	}
}
