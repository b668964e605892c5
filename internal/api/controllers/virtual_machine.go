package controllers

import (
	"net/http"

	"vm-rental/internal/azure"
	vmservice "vm-rental/internal/services/vm_service"

	"github.com/gin-gonic/gin"
)

type VirtualMachineController struct {
	vms *vmservice.VMService
}

func NewVirtualMachineController(vms *vmservice.VMService) *VirtualMachineController {
	return &VirtualMachineController{vms: vms}
}

func (vmC *VirtualMachineController) RegisterRoutes(r *gin.RouterGroup) {
	vm := r.Group("/vms")
	vm.GET("", vmC.List)
	vm.GET("/:id", vmC.Get)
	vm.POST("/register", vmC.Register)
	vm.DELETE("/:id", vmC.Unregister)
	vm.POST("/provision", vmC.Provision)
	vm.DELETE("/:id/deprovision", vmC.Deprovision)
	vm.POST("/:id/rent", vmC.Rent)
	vm.POST("/:id/unrent", vmC.Unrent)
	vm.POST("/:id/reserve", vmC.Reserve)
	vm.POST("/:id/unreserve", vmC.Unreserve)
	vm.POST("/refresh", vmC.Refresh)
}

// List returns the merged pool view. A degraded provider listing still
// answers with store data and degraded=true.
func (vmC *VirtualMachineController) List(c *gin.Context) {
	result, err := vmC.vms.ListMerged(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (vmC *VirtualMachineController) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := vmC.vms.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vm": record})
}

type RegisterVMParams struct {
	AzureVMName string `json:"azure_vm_name"`
}

func (vmC *VirtualMachineController) Register(c *gin.Context) {
	var params RegisterVMParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := vmC.vms.Register(c.Request.Context(), params.AzureVMName)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vm": record})
}

func (vmC *VirtualMachineController) Unregister(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := vmC.vms.Unregister(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vm unregistered"})
}

type ProvisionVMParams struct {
	Name               string `json:"name"`
	Size               string `json:"size"`
	AdminUsername      string `json:"admin_username"`
	AdminPassword      string `json:"admin_password"`
	ImagePublisher     string `json:"image_publisher"`
	ImageOffer         string `json:"image_offer"`
	ImageSKU           string `json:"image_sku"`
	ImageVersion       string `json:"image_version"`
	NetworkInterfaceID string `json:"network_interface_id"`
	OSDiskSizeGB       int32  `json:"os_disk_size_gb"`
}

func (vmC *VirtualMachineController) Provision(c *gin.Context) {
	var params ProvisionVMParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := vmC.vms.Provision(c.Request.Context(), azure.CreateVMSpec{
		Name:               params.Name,
		Size:               params.Size,
		AdminUsername:      params.AdminUsername,
		AdminPassword:      params.AdminPassword,
		ImagePublisher:     params.ImagePublisher,
		ImageOffer:         params.ImageOffer,
		ImageSKU:           params.ImageSKU,
		ImageVersion:       params.ImageVersion,
		NetworkInterfaceID: params.NetworkInterfaceID,
		OSDiskSizeGB:       params.OSDiskSizeGB,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vm": record})
}

func (vmC *VirtualMachineController) Deprovision(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := vmC.vms.Deprovision(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vm deprovisioned"})
}

type RentVMParams struct {
	UserID   string `json:"user_id"`
	PlanName string `json:"plan_name"`
	Days     int    `json:"days"`
}

func (vmC *VirtualMachineController) Rent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var params RentVMParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := vmC.vms.Rent(c.Request.Context(), id, params.UserID, params.PlanName, params.Days)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vm": record})
}

func (vmC *VirtualMachineController) Unrent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := vmC.vms.Unrent(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vm unrented"})
}

type ReserveVMParams struct {
	ReservedBy string `json:"reserved_by"`
	Reason     string `json:"reason"`
}

func (vmC *VirtualMachineController) Reserve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var params ReserveVMParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := vmC.vms.Reserve(c.Request.Context(), id, params.ReservedBy, params.Reason); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vm reserved"})
}

func (vmC *VirtualMachineController) Unreserve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := vmC.vms.Unreserve(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vm unreserved"})
}

func (vmC *VirtualMachineController) Refresh(c *gin.Context) {
	report, err := vmC.vms.RefreshPowerStates(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
