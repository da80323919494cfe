package typemap

// Azure native (resource provider) type names. The discovery core scans AWS;
// the Azure table keeps the neutral vocabulary provider-complete so inventory
// consumers see one type space.
var azureToNeutral = map[string]string{
	"Microsoft.Compute/virtualMachines":          "azurerm_linux_virtual_machine",
	"Microsoft.Compute/disks":                    "azurerm_managed_disk",
	"Microsoft.Storage/storageAccounts":          "azurerm_storage_account",
	"Microsoft.Network/virtualNetworks":          "azurerm_virtual_network",
	"Microsoft.Network/networkSecurityGroups":    "azurerm_network_security_group",
	"Microsoft.Network/publicIPAddresses":        "azurerm_public_ip",
	"Microsoft.Network/loadBalancers":            "azurerm_lb",
	"Microsoft.Sql/servers":                      "azurerm_mssql_server",
	"Microsoft.Sql/servers/databases":            "azurerm_mssql_database",
	"Microsoft.Web/sites":                        "azurerm_app_service",
	"Microsoft.KeyVault/vaults":                  "azurerm_key_vault",
	"Microsoft.ContainerService/managedClusters": "azurerm_kubernetes_cluster",
	"Microsoft.ContainerRegistry/registries":     "azurerm_container_registry",
	"Microsoft.Cache/Redis":                      "azurerm_redis_cache",
	"Microsoft.DocumentDB/databaseAccounts":      "azurerm_cosmosdb_account",
}

var neutralToAzure = invert(azureToNeutral)
