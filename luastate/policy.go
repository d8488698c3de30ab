package luastate

import (
	"github.com/Neumenon/sgb/savefile"
)

// Policy decides which globals move between a save and the Lua state.
//
// Globals named in Ignores are never loaded or extracted. When
// Whitelist is set, Extract persists exactly those globals, in that
// order; otherwise it persists every global not ignored.
type Policy struct {
	Ignores   map[string]bool
	Whitelist []string
}

// Allow reports whether Extract persists the global name.
func (p Policy) Allow(name string) bool {
	if p.Ignores[name] {
		return false
	}
	if len(p.Whitelist) == 0 {
		return true
	}
	for _, w := range p.Whitelist {
		if w == name {
			return true
		}
	}
	return false
}

// loads reports whether Load installs the global name.
func (p Policy) loads(name string) bool {
	return !p.Ignores[name]
}

// PolicyFor returns the policy the game applies to a container version.
func PolicyFor(v savefile.Version) Policy {
	switch v {
	case savefile.V17:
		return Policy{Whitelist: append([]string(nil), saveWhitelistV17...)}
	default:
		ignores := make(map[string]bool, len(saveIgnoresV16))
		for _, name := range saveIgnoresV16 {
			ignores[name] = true
		}
		return Policy{Ignores: ignores}
	}
}

var saveWhitelistV17 = []string{
	"GameState", "StoredGameState", "CurrentRun", "MapState", "AudioState",
	"CurrentHubRoom", "CodexStatus", "_worldTime", "_worldTimeUnmodified",
	"Revision", "NextSeeds",
}

// saveIgnoresV16 lists runtime state, library tables and constant game
// data that version 16 saves leave out.
var saveIgnoresV16 = []string{
	"debug", "package", "luanet", "_G", "os", "coroutine", "table",
	"_currentLine", "_currentFileName", "_currentStackLevel",
	"lastGoodThreadInfo", "string", "math", "io", "_VERSION", "Pickle",
	"_threadStack", "_threads", "_workingThreads", "_tagsToKill",
	"_events", "bit32", "_eventListeners", "_eventTimeoutRecord", "error",
	"pcall", "rawequal", "tostring", "getmetatable", "setmetatable",
	"rawlen", "rawget", "loadfile", "next", "rawset", "tonumber",
	"xpcall", "print", "type", "select", "dofile", "collectgarbage",
	"assert", "pairs", "ipairs", "load", "resume", "char",
	"newFunctionCall", "NewStack", "SetCurrentLine", "TO_SAVE", "luabins",
	"utf8", "DebugFunctionIgnores", "MainFileFunctions",
	"global_triggerArgs", "SaveIgnores", "RoomSaveBlacklist",
	"RoomSaveWhitelist", "EncounterSaveBlacklist", "RunSaveWhitelist",
	"_saveData", "HotLoadInfo", "ForceEvent", "BlockHeroDeath",
	"verboseLogging", "CombatPresentationCaps",
	"CombatPresentationDeferredHealthBars", "UIScriptsDeferred",
	"DeferredPlayVoiceLines", "GameData", "ConstantsData",
	"GameStateFlagData", "TextFormats", "Color", "EnemyData",
	"UnitSetData", "PresetEventArgs", "EncounterData", "RoomData",
	"RoomSetData", "BiomeMap", "HeroData", "GlobalModifiers", "LootData",
	"RewardStoreData", "MarketData", "BrokerData", "BrokerScreenData",
	"MetaUpgradeData", "TraitMultiplierData", "TraitData", "WeaponData",
	"ProjectileData", "EffectData", "SellTraitData", "StoreData",
	"GhostData", "WeaponUpgradeData", "BoonInfoScreenData", "FishingData",
	"EnemyUpgradeData", "ConsumableData", "ResourceData",
	"ConditionalItemData", "QuestData", "QuestOrderData", "ObstacleData",
	"CreditsData", "CreditsFormat", "CreditSpacing", "GlobalVoiceLines",
	"HeroVoiceLines", "WeaponSets", "UnitSets", "EnemySets", "Codex",
	"DeathLoopData", "BiomeMapGraphics", "ObjectiveData",
	"ObjectiveSetData", "ScreenData", "CodexUI", "CombatUI", "ShopUI",
	"LevelUpUI", "HealthUI", "SuperUI", "TraitUI", "ConsumableUI",
	"AmmoUI", "GunUI", "MoneyUI", "UIData", "ResourceOrderData",
	"PlayerAIPersonaData", "IconData", "MusicTrackData",
	"MusicPlayerTrackData", "MusicPlayerTrackOrderData",
	"RoomStartMusicEvents", "CombatOverMusicEvents", "AmbienceTracks",
	"KeywordList", "Keywords", "HeroPhysicalWeapons",
	"WaveDifficultyPatterns", "TimerBlockCombatExcludes", "EncounterSets",
	"CodexOrdering", "CodexUnlockTypes", "ShowingCodexUpdateAnimation",
	"Icons", "IconTooltips", "FormatContainerIds", "RunIntroData",
	"GameOutroData", "EpilogueData", "MetaUpgradeLockOrder",
	"MetaUpgradeOrder", "ShrineUpgradeOrder", "ShrineClearData",
	"BiomeTimeLimits", "RerollCosts", "ScreenAnchors",
	"ScreenPresentationData", "EnemyHealthDisplayAnchors",
	"AssistUpgradeData", "GiftData", "GiftIconData", "GiftOrdering",
	"GiftOrderingReverseLookup", "BaseWaveOverrideValues",
	"ElysiumWaveOverrideValues", "IntroWaveOverrideValues",
	"MaterialDefaults", "BiomeList", "StatusAnimations", "DamageRecord",
	"SpawnRecord", "HealthRecord", "LifeOnKillRecord", "AnchorId",
	"AdditionalDataAnchorId", "TraitInfoCardId", "AdvancedTooltipIcon",
	"TooltipData", "IdsTable", "IdsByTypeTable", "MusicId",
	"SecretMusicId", "SecretMusicName", "StoppingMusicId",
	"AmbientMusicId", "AmbienceId", "AmbienceName", "MapState",
	"SessionState", "AudioState", "ActiveEnemies", "RequiredKillEnemies",
	"ActiveObstacles", "ActivatedObjects", "LootObjects",
	"SurroundEnemiesAttacking", "LastEnemyKilled", "CurrentLootData",
	"CurrentMetaUpgradeName", "TempTextData", "LocalizationData",
	"TextLinesCache", "GlobalCooldowns", "GlobalCounts",
	"OfferedExitDoors", "SessionAchivementUnlocks",
}
